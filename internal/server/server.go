// Package server exposes requirement parsing, previews and dataset downloads over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shpitdev/synthdata/internal/app"
	"github.com/shpitdev/synthdata/internal/requirements"
	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/export"
	"github.com/shpitdev/synthdata/pkg/synth"
)

const (
	defaultMaxRows        = 100_000
	defaultMaxBodyBytes   = 1 << 20
	defaultRequestTimeout = 60 * time.Second
	downloadBaseName      = "synthetic_data"
)

type Config struct {
	// MaxRows caps the entry count of a single export request.
	MaxRows int
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64
	// RequestTimeout bounds every request.
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRows <= 0 {
		c.MaxRows = defaultMaxRows
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return c
}

type Server struct {
	svc *app.Service
	cfg Config

	validateOnce sync.Once
	validate     *validator.Validate
}

func New(svc *app.Service, cfg Config) *Server {
	return &Server{svc: svc, cfg: cfg.withDefaults()}
}

// Handler returns the router with the standard middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.svc.Metrics().Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/requirements/parse", s.handleParse)
		r.Post("/datasets/preview", s.handlePreview)
		r.Post("/datasets/export", s.handleExport)
	})
	return r
}

type healthStatus struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := writeJSON(w, http.StatusOK, healthStatus{Status: "ok"}); err != nil {
		log.Printf("write health response: %v", err)
	}
}

type parseRequest struct {
	Text string `json:"text" validate:"required"`
}

// datasetRequest names requirements either directly or as free text to parse first.
type datasetRequest struct {
	Requirements *requirements.Document `json:"requirements,omitempty" validate:"required_without=Text"`
	Text         string                 `json:"text,omitempty"`
	// Rows is the preview size or, for exports, an override of num_entries.
	Rows *int `json:"rows,omitempty" validate:"omitempty,gte=0"`
}

type previewResponse struct {
	Requirements requirements.Document `json:"requirements"`
	Header       []string              `json:"header"`
	Rows         [][]string            `json:"rows"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := s.decode(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	reqs, err := s.svc.ParseRequirements(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, document(reqs)); err != nil {
		log.Printf("write parse response: %v", err)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req datasetRequest
	if err := s.decode(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	reqs, err := s.resolve(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n := synth.DefaultPreviewRows
	if req.Rows != nil && *req.Rows > 0 {
		n = min(*req.Rows, s.cfg.MaxRows)
	}
	ds, err := s.svc.Preview(r.Context(), reqs, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := previewResponse{
		Requirements: document(reqs),
		Header:       ds.Header(),
		Rows:         make([][]string, ds.Len()),
	}
	for i := range resp.Rows {
		row := make([]string, len(ds.Columns))
		for j, c := range ds.Columns {
			row[j] = export.FormatValue(c.Values[i], c.Type)
		}
		resp.Rows[i] = row
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		log.Printf("write preview response: %v", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var req datasetRequest
	if err := s.decode(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	reqs, err := s.resolve(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	count := reqs.NumEntries
	if req.Rows != nil {
		count = *req.Rows
	}
	if count > s.cfg.MaxRows {
		badRequest(w, r, fmt.Errorf("requested %d entries, the limit is %d", count, s.cfg.MaxRows))
		return
	}

	ds, err := s.svc.Generate(r.Context(), reqs, count, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.svc.Encode(&buf, ds, format); err != nil {
		internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, downloadBaseName, format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Row-Count", strconv.Itoa(ds.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("write export response: %v", err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := readJSON(w, r, s.cfg.MaxBodyBytes, dst); err != nil {
		return err
	}
	s.validateOnce.Do(func() {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

func (s *Server) resolve(ctx context.Context, req datasetRequest) (dataset.Requirements, error) {
	if req.Requirements != nil {
		return req.Requirements.Requirements()
	}
	return s.svc.ParseRequirements(ctx, req.Text)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *dataset.ValidationError
		gerr *synth.GenerationError
	)
	switch {
	case errors.Is(err, app.ErrNoParser):
		statusError(w, r, http.StatusServiceUnavailable, err)
	case errors.Is(err, requirements.ErrUnparseable), errors.As(err, &verr):
		statusError(w, r, http.StatusUnprocessableEntity, err)
	case errors.As(err, &gerr):
		internalError(w, r, err)
	case errors.Is(err, context.DeadlineExceeded):
		statusError(w, r, http.StatusGatewayTimeout, err)
	case errors.Is(err, context.Canceled):
		log.Printf("request cancelled: %s path: %s", r.Method, r.URL.Path)
	default:
		// Anything else comes from the requirements parser upstream.
		statusError(w, r, http.StatusBadGateway, err)
	}
}

func document(reqs dataset.Requirements) requirements.Document {
	n := reqs.NumEntries
	return requirements.Document{Domain: reqs.Domain, NumEntries: &n, Fields: reqs.Fields}
}

// Run serves handler on addr until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("synthdata listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down server: %v", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Printf("server gracefully stopped")
	return nil
}
