// Package server exposes the schemas of a registry as gated HTTP routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	valid "github.com/raywall/json-schema-gate"
	"github.com/raywall/json-schema-gate/config"
)

// Server serves one POST /validate/{name} route per registered schema.
type Server struct {
	cfg      *config.Config
	registry *valid.Registry
	logger   zerolog.Logger
	router   chi.Router
	gates    map[string]*valid.Gate
}

// New builds the router. Every schema in registry gets its gate here, so a
// registry change after New is not picked up.
func New(cfg *config.Config, registry *valid.Registry, logger zerolog.Logger, reg *prometheus.Registry) (*Server, error) {
	if cfg == nil || registry == nil || reg == nil {
		return nil, errors.New("server: config, registry and prometheus registry are required")
	}

	s := &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		gates:    make(map[string]*valid.Gate),
	}

	metrics := valid.NewMetrics(reg)
	for _, name := range registry.Keys() {
		gate, err := registry.Gate(name,
			valid.WithSkipMethods(cfg.Gate.SkipMethods...),
			valid.WithMaxBodyBytes(cfg.Gate.MaxBodyBytes),
			valid.WithLogger(logger),
			valid.WithMetrics(metrics),
		)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.gates[name] = gate
	}

	r := chi.NewRouter()
	r.Use(RequestID(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/schemas", s.handleListSchemas)
	r.Get("/schemas/{name}", s.handleGetSchema)
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(cfg.Server))
		for name, gate := range s.gates {
			r.With(gate.Handler).Post("/validate/"+name, s.handleValidated(name))
		}
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", srv.Addr).
			Int("schemas", len(s.gates)).
			Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"schemas": s.registry.Keys()})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	validator, ok := s.registry.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, valid.ErrorResponse{Error: fmt.Sprintf("schema '%s' not found", name)})
		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(validator.Source())
}

// validatedResponse is returned by every gated route.
type validatedResponse struct {
	Valid    bool   `json:"valid"`
	Schema   string `json:"schema"`
	Document any    `json:"document"`
}

func (s *Server) handleValidated(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		document, err := valid.Validated(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("schema", name).Msg("handler reached without validated document")
			writeJSON(w, http.StatusInternalServerError, valid.ErrorResponse{Error: "no validated document"})
			return
		}
		writeJSON(w, http.StatusOK, validatedResponse{Valid: true, Schema: name, Document: document})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
