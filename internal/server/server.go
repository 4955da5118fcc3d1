// Package server exposes the invoice engine over HTTP.
//
// Routes:
//   - GET  /                    upload form
//   - GET  /healthz             liveness probe
//   - POST /api/invoices/render JSON record in, PDF out
//   - POST /api/invoices/scan   multipart "receipt" image in, PDF out
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"invoicer/internal/extract"
	"invoicer/internal/logger"
	"invoicer/internal/render"
	"invoicer/pkg/models"
)

// Renderer turns a record into a PDF invoice.
type Renderer interface {
	Render(rec *models.InvoiceRecord, number string) (*render.Document, error)
}

// Options configures the HTTP server.
type Options struct {
	// Extractor is optional; without it the scan route answers 503.
	Extractor         extract.Extractor
	AllowedOrigins    []string
	MaxUploadBytes    int64
	ExtractionTimeout time.Duration
}

// Server routes HTTP requests to the engine and the extractor.
type Server struct {
	renderer  Renderer
	extractor extract.Extractor
	opts      Options
	router    *mux.Router
	log       zerolog.Logger
}

// New creates a server around the given renderer.
func New(renderer Renderer, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.ExtractionTimeout <= 0 {
		opts.ExtractionTimeout = 2 * time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		renderer:  renderer,
		extractor: opts.Extractor,
		opts:      opts,
		router:    mux.NewRouter(),
		log:       logger.WithComponent("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestLogger)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/invoices").Subrouter()
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{"Content-Disposition", invoiceNumberHeader, requestIDHeader},
		MaxAge:         300, // 5 minutes
	})
	return c.Handler(s.router)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.ExtractionTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
