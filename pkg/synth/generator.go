package synth

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/pipeline/worker"
)

const (
	// DefaultBatchSize is the number of entries synthesized between progress reports.
	DefaultBatchSize = 1000
	// DefaultPreviewRows is the size of a sample preview.
	DefaultPreviewRows = 5
)

type Options struct {
	BatchSize int
	// Workers bounds the entry synthesis fan-out within a batch. Defaults to GOMAXPROCS.
	Workers int
	// Seed makes generation reproducible. Zero picks a random seed per run.
	Seed uint64
	// Now is the reference clock for default date ranges. Defaults to time.Now.
	Now func() time.Time
	// NewSource builds the per-entry random source from two seed words drawn from the
	// run's master source. Defaults to a PCG source.
	NewSource func(hi, lo uint64) rand.Source
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewSource == nil {
		o.NewSource = func(hi, lo uint64) rand.Source { return rand.NewPCG(hi, lo) }
	}
	return o
}

// Progress is reported after each batch has been merged into the dataset.
type Progress struct {
	Batch    int // completed batches
	Batches  int
	Rows     int // rows assembled so far
	Fraction float64
}

// ProgressFunc receives batch completion updates on the generating goroutine.
type ProgressFunc func(Progress)

// Generator synthesizes datasets in fixed-size batches.
type Generator struct {
	opts Options
}

func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts.withDefaults()}
}

// BatchSize returns the effective batch size.
func (g *Generator) BatchSize() int { return g.opts.BatchSize }

// Batches returns how many batches count entries split into.
func Batches(count, batchSize int) int {
	if count <= 0 || batchSize <= 0 {
		return 0
	}
	return (count + batchSize - 1) / batchSize
}

// GenerateAll synthesizes reqs.NumEntries entries.
func (g *Generator) GenerateAll(ctx context.Context, reqs dataset.Requirements, onProgress ProgressFunc) (*dataset.Dataset, error) {
	return g.Generate(ctx, reqs, reqs.NumEntries, onProgress)
}

// Preview synthesizes a small sample without progress reporting. n <= 0 uses
// DefaultPreviewRows.
func (g *Generator) Preview(ctx context.Context, reqs dataset.Requirements, n int) (*dataset.Dataset, error) {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	return g.Generate(ctx, reqs, n, nil)
}

// Generate synthesizes count entries for reqs. Entries within a batch are synthesized
// concurrently and merged in submission order before progress is reported. ctx is
// checked at every batch boundary.
func (g *Generator) Generate(ctx context.Context, reqs dataset.Requirements, count int, onProgress ProgressFunc) (*dataset.Dataset, error) {
	if count < 0 {
		return nil, fmt.Errorf("entry count must be >= 0, got %d", count)
	}
	reqs = reqs.Normalize()
	if err := reqs.Validate(); err != nil {
		return nil, err
	}

	seed := g.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	master := rand.New(rand.NewPCG(seed, seed^pcgStream))

	total := Batches(count, g.opts.BatchSize)
	asm := dataset.NewAssembler(reqs.Fields, count)

	for b := 0; b < total; b++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation stopped before batch %d of %d: %w", b+1, total, err)
		}

		size := min(g.opts.BatchSize, count-b*g.opts.BatchSize)
		seeds := make([]entrySeed, size)
		for i := range seeds {
			seeds[i] = entrySeed{master.Uint64(), master.Uint64()}
		}

		entries, err := g.batch(ctx, reqs, seeds)
		if err != nil {
			var gerr *GenerationError
			if errors.As(err, &gerr) {
				gerr.Batch = b
				return nil, gerr
			}
			return nil, fmt.Errorf("generate batch %d of %d: %w", b+1, total, err)
		}
		if err := asm.Append(entries...); err != nil {
			return nil, fmt.Errorf("assemble batch %d of %d: %w", b+1, total, err)
		}

		if onProgress != nil {
			onProgress(Progress{
				Batch:    b + 1,
				Batches:  total,
				Rows:     asm.Len(),
				Fraction: float64(b+1) / float64(total),
			})
		}
	}
	return asm.Dataset(), nil
}

type entrySeed struct {
	hi, lo uint64
}

func (g *Generator) batch(ctx context.Context, reqs dataset.Requirements, seeds []entrySeed) ([]dataset.Entry, error) {
	results, err := worker.ProcessAll(ctx, seeds, func(_ context.Context, s entrySeed) (dataset.Entry, error) {
		return NewSynthesizer(g.opts.NewSource(s.hi, s.lo), g.opts.Now).Entry(reqs)
	}, worker.Options{
		Workers:       g.opts.Workers,
		FailurePolicy: worker.FailurePolicyFailFast,
	})
	if err != nil {
		return nil, err
	}
	entries := make([]dataset.Entry, len(results))
	for i, res := range results {
		entries[i] = res.Output
	}
	return entries, nil
}
