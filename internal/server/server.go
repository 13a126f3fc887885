// Package server exposes the cache control protocol and relevance queries
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/alteration"
	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/genomenexus"
	"github.com/inodb/vibe-oncokb/internal/oncogenicity"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Config configures a Server.
type Config struct {
	Addr string `validate:"required,hostname_port"`
	// ReferenceGenome is the build assumed when a query names none.
	ReferenceGenome string        `validate:"omitempty,oneof=GRCh37 GRCh38 grch37 grch38"`
	ReadTimeout     time.Duration `validate:"gte=0"`
	WriteTimeout    time.Duration `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(e.Field()), e.Tag()))
			}
			return fmt.Errorf("invalid server config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Annotator resolves genomic queries into protein alterations.
type Annotator interface {
	Alteration(ctx context.Context, typ genomenexus.QueryType, query string,
		genome alteration.ReferenceGenome, genes genomenexus.GeneResolver) (*alteration.Alteration, error)
}

// Server serves the HTTP API.
type Server struct {
	cfg       Config
	genome    alteration.ReferenceGenome
	cache     *cache.Service
	deriver   *oncogenicity.Deriver
	annotator Annotator
	logger    *zap.Logger
}

// New creates a server over svc. deriver answers oncogenicity questions for
// relevance queries.
func New(cfg Config, svc *cache.Service, deriver *oncogenicity.Deriver) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	genome := alteration.DefaultReferenceGenome
	if cfg.ReferenceGenome != "" {
		genome, _ = alteration.ParseReferenceGenome(cfg.ReferenceGenome)
	}
	return &Server{
		cfg:     cfg,
		genome:  genome,
		cache:   svc,
		deriver: deriver,
		logger:  zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for request and error logs.
func (s *Server) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetAnnotator enables hgvsg and genomic location queries.
func (s *Server) SetAnnotator(a Annotator) {
	s.annotator = a
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Get("/health", s.healthCheck)
	router.Handle("/metrics", promhttp.HandlerFor(s.cache.Metrics().Registry(), promhttp.HandlerOpts{}))

	router.Route("/cache", func(r chi.Router) {
		r.Get("/", s.handleCache)
		r.Post("/", s.handleCache)
		r.Get("/genes", s.handleCachedGenes)
	})
	router.Get("/relevant", s.handleRelevant)

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
