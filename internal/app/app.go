// Package app wires requirement parsing, generation and export into the runs exposed by
// the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shpitdev/synthdata/internal/metrics"
	"github.com/shpitdev/synthdata/internal/requirements"
	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/export"
	"github.com/shpitdev/synthdata/pkg/pipeline/redact"
	"github.com/shpitdev/synthdata/pkg/synth"
)

// ErrNoParser is returned when free text is given but no Parser is configured.
var ErrNoParser = errors.New("no requirements parser configured (set GEMINI_API_KEY and GEMINI_MODEL)")

type Options struct {
	Generator synth.Options
	Metrics   *metrics.Recorder
	// Logger defaults to stdout with standard flags.
	Logger *log.Logger
}

// Service runs parse, preview, generate and export operations.
type Service struct {
	parser  requirements.Parser
	gen     *synth.Generator
	metrics *metrics.Recorder
	logger  *log.Logger
}

// New returns a Service. parser may be nil when only structured requirements are used.
func New(parser requirements.Parser, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &Service{
		parser:  parser,
		gen:     synth.NewGenerator(opts.Generator),
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Metrics returns the recorder the service reports to, or nil.
func (s *Service) Metrics() *metrics.Recorder { return s.metrics }

type run struct {
	id     string
	logger *log.Logger
	start  time.Time
}

func (s *Service) newRun() *run {
	return &run{id: uuid.NewString(), logger: s.logger, start: time.Now()}
}

func (r *run) logf(format string, args ...any) {
	prefix := make([]any, 0, len(args)+1)
	prefix = append(prefix, r.id)
	prefix = append(prefix, args...)
	r.logger.Printf("run=%s "+format, prefix...)
}

func (r *run) elapsed() time.Duration {
	return time.Since(r.start).Round(time.Millisecond)
}

// ParseRequirements turns a free-text description into requirements through the
// configured Parser.
func (s *Service) ParseRequirements(ctx context.Context, text string) (dataset.Requirements, error) {
	if s.parser == nil {
		return dataset.Requirements{}, ErrNoParser
	}
	r := s.newRun()
	r.logf("parse request: chars=%d", len(strings.TrimSpace(text)))
	reqs, err := s.parser.Parse(ctx, text)
	s.metrics.Parse(err)
	if err != nil {
		r.logf("parse response: status=error duration=%s error=%q", r.elapsed(), redact.Error(err))
		return dataset.Requirements{}, err
	}
	r.logf(
		"parse response: status=ok duration=%s domain=%q numEntries=%d fields=%q",
		r.elapsed(),
		reqs.Domain,
		reqs.NumEntries,
		strings.Join(reqs.FieldNames(), ","),
	)
	return reqs, nil
}

// Source says where requirements come from: a document path or free text.
type Source struct {
	Path string
	Text string
}

// Resolve loads requirements from src. A path wins over text.
func (s *Service) Resolve(ctx context.Context, src Source) (dataset.Requirements, error) {
	switch {
	case strings.TrimSpace(src.Path) != "":
		return requirements.LoadFile(src.Path)
	case strings.TrimSpace(src.Text) != "":
		return s.ParseRequirements(ctx, src.Text)
	default:
		return dataset.Requirements{}, fmt.Errorf("either a requirements file or a description is required")
	}
}

// Preview synthesizes a small sample. n <= 0 uses synth.DefaultPreviewRows.
func (s *Service) Preview(ctx context.Context, reqs dataset.Requirements, n int) (*dataset.Dataset, error) {
	r := s.newRun()
	ds, err := s.gen.Preview(ctx, reqs, n)
	if err != nil {
		r.logf("preview failed: duration=%s error=%q", r.elapsed(), redact.Error(err))
		return nil, err
	}
	r.logf("preview complete: rows=%d fields=%d duration=%s", ds.Len(), len(ds.Columns), r.elapsed())
	return ds, nil
}

// Generate synthesizes count entries, or reqs.NumEntries when count < 0. onProgress may
// be nil.
func (s *Service) Generate(ctx context.Context, reqs dataset.Requirements, count int, onProgress synth.ProgressFunc) (*dataset.Dataset, error) {
	if count < 0 {
		count = reqs.NumEntries
	}
	r := s.newRun()
	r.logf(
		"generation start: domain=%q entries=%d fields=%d batchSize=%d batches=%d",
		reqs.Domain,
		count,
		len(reqs.Fields),
		s.gen.BatchSize(),
		synth.Batches(count, s.gen.BatchSize()),
	)

	prevRows := 0
	ds, err := s.gen.Generate(ctx, reqs, count, func(p synth.Progress) {
		s.metrics.Batch(p.Rows - prevRows)
		prevRows = p.Rows
		r.logf(
			"batch complete: batch=%d/%d rows=%d progress=%.0f%% elapsed=%s",
			p.Batch,
			p.Batches,
			p.Rows,
			p.Fraction*100,
			r.elapsed(),
		)
		if onProgress != nil {
			onProgress(p)
		}
	})
	s.metrics.Run(time.Since(r.start), err)
	if err != nil {
		var gerr *synth.GenerationError
		if errors.As(err, &gerr) {
			r.logf("generation failed: batch=%d field=%q duration=%s error=%q", gerr.Batch+1, gerr.Field, r.elapsed(), redact.Error(gerr.Err))
		} else {
			r.logf("generation failed: duration=%s error=%q", r.elapsed(), redact.Error(err))
		}
		return nil, err
	}
	r.logf("generation complete: rows=%d duration=%s", ds.Len(), r.elapsed())
	return ds, nil
}

// Export writes ds to dir once per format, named <base>.<ext>.
func (s *Service) Export(ctx context.Context, ds *dataset.Dataset, dir, base string, formats []export.Format) ([]export.File, error) {
	if strings.TrimSpace(base) == "" {
		base = "synthetic_data"
	}
	r := s.newRun()
	files, err := export.EncodeAll(ctx, dir, base, ds, formats)
	if err != nil {
		r.logf("export failed: dir=%q duration=%s error=%q", dir, r.elapsed(), redact.Error(err))
		return nil, err
	}
	for _, f := range files {
		s.metrics.ExportBytes(string(f.Format), f.Size)
		r.logf("export written: format=%s path=%q bytes=%d", f.Format.Name(), f.Path, f.Size)
	}
	r.logf("export complete: files=%d duration=%s", len(files), r.elapsed())
	return files, nil
}

// Encode streams ds to w in format f and records the bytes written.
func (s *Service) Encode(w io.Writer, ds *dataset.Dataset, f export.Format) error {
	cw := &countingWriter{w: w}
	err := export.Encode(cw, ds, f)
	s.metrics.ExportBytes(string(f), cw.n)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
