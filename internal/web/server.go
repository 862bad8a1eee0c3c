// Package web serves the upload form and transactions page.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/ledgerview/ledgerview/internal/api"
	"github.com/ledgerview/ledgerview/internal/metrics"
	"github.com/ledgerview/ledgerview/internal/store"
	"github.com/ledgerview/ledgerview/internal/upload"
	"github.com/ledgerview/ledgerview/internal/view"
)

// multipartOverhead is the slack allowed above the file size limit for
// boundaries and part headers.
const multipartOverhead = 64 << 10

// Transactions loads the data behind the transactions page.
type Transactions interface {
	Transactions(ctx context.Context) store.State
}

// Uploader runs one upload attempt.
type Uploader interface {
	Do(ctx context.Context, f *upload.File) (upload.Status, error)
	MaxBytes() int64
}

// Options configures a Server.
type Options struct {
	Store    Transactions
	Uploader Uploader
	Metrics  *metrics.Metrics
	Logger   *zerolog.Logger
	Location *time.Location // display zone for dates; nil = WIB
}

// Server is the HTTP frontend.
type Server struct {
	store    Transactions
	uploader Uploader
	metrics  *metrics.Metrics
	log      zerolog.Logger
	loc      *time.Location
}

// New creates a Server.
func New(opts Options) *Server {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Server{
		store:    opts.Store,
		uploader: opts.Uploader,
		metrics:  opts.Metrics,
		log:      log,
		loc:      opts.Location,
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.uploadForm)
	mux.HandleFunc("POST /upload", s.upload)
	mux.HandleFunc("GET /transactions", s.transactions)
	mux.HandleFunc("GET /healthz", s.health)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(s.log)(h)
	return h
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve serves on ln until ctx is done, then drains in-flight requests for
// at most shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("serving")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) uploadForm(w http.ResponseWriter, r *http.Request) {
	s.renderUpload(w, r, http.StatusOK, view.UploadPage{})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	limit := s.uploader.MaxBytes()
	tooLarge := view.UploadPage{Message: upload.TooLarge(limit), Failed: true}
	if limit > 0 {
		if r.ContentLength > limit+multipartOverhead {
			s.renderUpload(w, r, http.StatusBadRequest, tooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	file, err := formFile(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.renderUpload(w, r, http.StatusBadRequest, tooLarge)
			return
		}
		hlog.FromRequest(r).Warn().Err(err).Msg("reading upload form")
		s.renderUpload(w, r, http.StatusBadRequest, view.UploadPage{Message: upload.MsgFailed, Failed: true})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if file != nil {
		if c, ok := file.Body.(io.Closer); ok {
			defer c.Close()
		}
	}

	st, err := s.uploader.Do(r.Context(), file)
	if err == nil {
		http.Redirect(w, r, "/transactions", http.StatusSeeOther)
		return
	}

	code := http.StatusBadGateway
	switch {
	case errors.Is(err, upload.ErrNoFile), errors.Is(err, upload.ErrRejected):
		code = http.StatusBadRequest
	case api.IsAPIError(err):
		hlog.FromRequest(r).Info().Err(err).Msg("statement API rejected upload")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("statement API unreachable")
	}
	s.renderUpload(w, r, code, view.UploadPage{Message: st.Text, Failed: true})
}

// formFile returns the "file" part, or nil if the form carries none.
func formFile(r *http.Request) (*upload.File, error) {
	f, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, nil
	case err != nil:
		return nil, err
	}
	if hdr.Filename == "" {
		f.Close()
		return nil, nil
	}
	return &upload.File{Name: hdr.Filename, Size: hdr.Size, Body: f}, nil
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	page := view.NewTransactionsPage(s.store.Transactions(r.Context()), s.loc)
	var buf bytes.Buffer
	if err := view.RenderTransactions(&buf, page); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("rendering transactions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) renderUpload(w http.ResponseWriter, r *http.Request, code int, p view.UploadPage) {
	var buf bytes.Buffer
	if err := view.RenderUpload(&buf, p); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("rendering upload form")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, code, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
