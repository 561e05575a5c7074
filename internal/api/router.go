package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"incidentLog/internal/api/handlers/http/incidents"
	"incidentLog/internal/api/handlers/http/system"
	"incidentLog/internal/config"
	"incidentLog/internal/middleware"
	"incidentLog/internal/service"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

func NewServer(cfg *config.Config, logger *slog.Logger, svc *service.Service) *Server {
	incidentHandler := incidents.NewHandler(logger, svc.IncidentService, svc.StatsService)
	systemHandler := system.NewHandler(logger)

	r := InitRouter(cfg, incidentHandler, systemHandler, logger)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
	}
}

func InitRouter(cfg *config.Config, incidentHandler *incidents.Handler, systemHandler *system.Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewMux()

	// RequestID first so chi's Logger and the handlers share the id.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Http.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", chimw.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", systemHandler.Welcome)
	r.Get("/health", systemHandler.SystemHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Limit(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TTL, logger))

		api.Route("/incidents", func(ir chi.Router) {
			ir.Get("/", incidentHandler.IncidentList)
			ir.Post("/", incidentHandler.IncidentCreate)

			// static segments before {id}
			ir.Get("/stats", incidentHandler.IncidentStats)
			ir.Get("/by-title", incidentHandler.IncidentGetByTitle)

			ir.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", incidentHandler.IncidentGet)
				rr.Delete("/", incidentHandler.IncidentDelete)
			})
		})
	})

	return r
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("🚀 Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("🛑 Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
