package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shpitdev/synthdata/internal/app"
	"github.com/shpitdev/synthdata/internal/metrics"
	"github.com/shpitdev/synthdata/internal/requirements"
	"github.com/shpitdev/synthdata/internal/server"
	"github.com/shpitdev/synthdata/internal/version"
	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/export"
	"github.com/shpitdev/synthdata/pkg/pipeline/redact"
	"github.com/shpitdev/synthdata/pkg/synth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "version", "--version":
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	case "parse":
		return runParse(ctx, args[1:], stdout, stderr)
	case "preview":
		return runPreview(ctx, args[1:], stdout, stderr)
	case "generate":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		usage(stderr)
		return 2
	}
}

// env holds configuration shared by every command that builds an app.Service.
type env struct {
	svc     *app.Service
	metrics *metrics.Recorder
}

func newEnv(ctx context.Context, stderr io.Writer, override func(*synth.Options)) (*env, int) {
	genOpts, err := loadGeneratorOptionsFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Error(err))
		return nil, 2
	}
	gemCfg, err := loadGeminiConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Error(err))
		return nil, 2
	}
	if override != nil {
		override(&genOpts)
	}
	parser, err := newParser(ctx, gemCfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "gemini config error: %s\n", redact.Error(err))
		return nil, 2
	}
	rec := metrics.New()
	return &env{
		svc: app.New(parser, app.Options{
			Generator: genOpts,
			Metrics:   rec,
			Logger:    log.New(stderr, "", log.LstdFlags),
		}),
		metrics: rec,
	}, 0
}

// sourceFlags are the requirement inputs shared by parse, preview and generate.
type sourceFlags struct {
	path       string
	prompt     string
	promptFile string
}

func (s *sourceFlags) register(fs *flag.FlagSet, withPath bool) {
	if withPath {
		fs.StringVar(&s.path, "requirements", "", "Requirements document (YAML or JSON)")
	}
	fs.StringVar(&s.prompt, "prompt", "", "Free-text description of the dataset (Gemini required)")
	fs.StringVar(&s.promptFile, "prompt-file", "", "File containing the free-text description")
}

func (s *sourceFlags) source() (app.Source, error) {
	src := app.Source{Path: s.path, Text: s.prompt}
	if s.promptFile != "" {
		b, err := os.ReadFile(s.promptFile)
		if err != nil {
			return app.Source{}, err
		}
		src.Text = string(b)
	}
	if strings.TrimSpace(src.Path) == "" && strings.TrimSpace(src.Text) == "" {
		return app.Source{}, errors.New("one of --requirements, --prompt or --prompt-file is required")
	}
	return src, nil
}

func runParse(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs, false)
	outFormat := fs.String("output", "yaml", "Output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in, err := src.source()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	e, code := newEnv(ctx, stderr, nil)
	if e == nil {
		return code
	}
	reqs, err := e.svc.ParseRequirements(ctx, in.Text)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "parse failed: %s\n", redact.Error(err))
		return 1
	}
	if err := writeRequirements(stdout, reqs, *outFormat); err != nil {
		_, _ = fmt.Fprintf(stderr, "write requirements: %v\n", err)
		return 1
	}
	return 0
}

func writeRequirements(w io.Writer, reqs dataset.Requirements, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		n := reqs.NumEntries
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(requirements.Document{Domain: reqs.Domain, NumEntries: &n, Fields: reqs.Fields})
	case "yaml", "yml", "":
		b, err := requirements.Marshal(reqs)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func runPreview(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs, true)
	rows := fs.Int("rows", synth.DefaultPreviewRows, "Number of sample rows")
	seed := fs.Uint64("seed", 0, "Seed for reproducible output, 0 picks one (env: SEED)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in, err := src.source()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	e, code := newEnv(ctx, stderr, func(o *synth.Options) {
		if *seed != 0 {
			o.Seed = *seed
		}
	})
	if e == nil {
		return code
	}
	reqs, err := e.svc.Resolve(ctx, in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "requirements error: %s\n", redact.Error(err))
		return 1
	}
	ds, err := e.svc.Preview(ctx, reqs, *rows)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "preview failed: %s\n", redact.Error(err))
		return 1
	}
	if err := writeTable(stdout, ds); err != nil {
		_, _ = fmt.Fprintf(stderr, "write preview: %v\n", err)
		return 1
	}
	return 0
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	genEnv, err := loadGeneratorOptionsFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Error(err))
		return 2
	}

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs, true)
	outDir := fs.String("out", ".", "Output directory")
	name := fs.String("name", "synthetic_data", "Output file base name")
	formats := fs.String("formats", "csv", "Comma-separated formats: csv, xlsx, json, xml, parquet, msgpack")
	count := fs.Int("count", -1, "Entries to generate, -1 uses num_entries from the requirements")
	batchSize := fs.Int("batch-size", genEnv.BatchSize, "Entries per batch (env: BATCH_SIZE)")
	workers := fs.Int("workers", genEnv.Workers, "Concurrent entry synthesizers, 0 uses GOMAXPROCS (env: WORKERS)")
	seed := fs.Uint64("seed", genEnv.Seed, "Seed for reproducible output, 0 picks one (env: SEED)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in, err := src.source()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	fmts, err := export.ParseFormats(*formats)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	e, code := newEnv(ctx, stderr, func(o *synth.Options) {
		o.BatchSize = *batchSize
		o.Workers = *workers
		o.Seed = *seed
	})
	if e == nil {
		return code
	}
	reqs, err := e.svc.Resolve(ctx, in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "requirements error: %s\n", redact.Error(err))
		return 1
	}
	ds, err := e.svc.Generate(ctx, reqs, *count, nil)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "generation failed: %s\n", redact.Error(err))
		return 1
	}
	files, err := e.svc.Export(ctx, ds, *outDir, *name, fmts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "export failed: %s\n", redact.Error(err))
		return 1
	}
	for _, f := range files {
		_, _ = fmt.Fprintf(stdout, "%s\t%d rows\t%d bytes\t%s\n", f.Format.Name(), ds.Len(), f.Size, f.Path)
	}
	return 0
}

func runInspect(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", "", "Exported file to read")
	format := fs.String("format", "", "File format, defaults to the file extension")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" {
		_, _ = fmt.Fprintln(stderr, "inspect requires --file")
		return 2
	}
	raw := *format
	if raw == "" {
		raw = filepath.Ext(*path)
	}
	f, err := export.ParseFormat(raw)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	fh, err := os.Open(*path)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		_ = fh.Close()
	}()
	table, err := export.Decode(fh, f)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "inspect failed: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "format=%s rows=%d columns=%d\n", f.Name(), table.Len(), len(table.Header))
	_, _ = fmt.Fprintf(stdout, "header=%s\n", strings.Join(table.Header, ","))
	return 0
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envString("LISTEN_ADDR", defaultListenAddr), "Listen address (env: LISTEN_ADDR)")
	maxRows := fs.Int("max-rows", 100_000, "Largest entry count a single export may request")
	timeout := fs.Duration("request-timeout", 60*time.Second, "Per-request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, code := newEnv(ctx, stderr, nil)
	if e == nil {
		return code
	}
	srv := server.New(e.svc, server.Config{MaxRows: *maxRows, RequestTimeout: *timeout})
	if err := server.Run(ctx, *addr, srv.Handler(), 5*time.Second); err != nil {
		_, _ = fmt.Fprintf(stderr, "server error: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `synthdata: synthetic tabular data from a description of the fields you need

Usage:
  synthdata <command> [flags]

Commands:
  parse     Turn a free-text description into a requirements document (Gemini required)
  preview   Print a few sample rows
  generate  Generate the full dataset and write it in one or more formats
  inspect   Read an exported file back and print its shape
  serve     Run the HTTP API
  version   Print the version

Examples:
  synthdata parse --prompt "2000 retail customers with age over 18 and total spent under 1000"
  synthdata preview --requirements retail.yaml --rows 10
  synthdata generate --requirements retail.yaml --formats csv,xlsx,parquet --out ./out

Environment:
  GEMINI_API_KEY         Gemini API key (needed for --prompt)
  GEMINI_MODEL           Gemini model name (needed for --prompt)
  GEMINI_BASE_URL        Optional base URL override (proxies/testing)
  GEMINI_RATE_LIMIT_RPS  Global Gemini request rate limit, 0 disables
  MAX_RETRIES            Retries for transient Gemini failures (default 3)
  REQUEST_TIMEOUT        Per-request Gemini timeout (default 30s)
  BATCH_SIZE             Entries per generation batch (default 1000)
  WORKERS                Concurrent entry synthesizers (default GOMAXPROCS)
  SEED                   Seed for reproducible output (default random)
  LISTEN_ADDR            serve listen address (default :8080)

`)
}
