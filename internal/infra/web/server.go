package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tagpay/internal/config"
	"tagpay/internal/normalize"
	"tagpay/internal/usecase"
)

// reservedPaths are never treated as root-level tokens.
var reservedPaths = map[string]bool{
	"activate":     true,
	"admin":        true,
	"api":          true,
	"u":            true,
	"metrics":      true,
	"pay-by-zelle": true,
}

const (
	routeActivate = "activate"
	routeDefault  = "default"
	maxImportBody = 5 << 20
)

type Deps struct {
	Activation usecase.ActivationUseCase
	Redirect   usecase.RedirectUseCase
	Admin      usecase.AdminUseCase
	Profiles   usecase.ProfileUseCase
	Normalizer *normalize.Normalizer
	Auth       *AuthManager
	Limiter    RateLimiter // optional
}

type Server struct {
	Deps
	cfg      config.ServerConfig
	rl       config.RateLimitConfig
	validate *validator.Validate
	log      *zerolog.Logger
	http     *http.Server
}

func NewServer(deps Deps, cfg config.ServerConfig, rl config.RateLimitConfig, logger *zerolog.Logger) *Server {
	return &Server{
		Deps:     deps,
		cfg:      cfg,
		rl:       rl,
		validate: validator.New(),
		log:      logger,
	}
}

// Router builds the full route table with the middleware chain applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r.Use(
		TraceID(),
		RealIP(s.cfg.TrustProxy),
		Recover(s.log),
		RequestLog(s.log),
		Timeout(timeout),
	)

	limit := RateLimit(s.Limiter, routeDefault, s.rl.Requests, s.rl.Window, s.log)
	activateLimit := RateLimit(s.Limiter, routeActivate, s.rl.ActivateRequests, s.rl.Window, s.log)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Get("/t/{token}", s.handleRedirect)
		r.Get("/{token}", s.handleRootToken)
		r.Get("/activate", s.handleActivatePrompt)
		r.Get("/u/{username}", s.handleProfile)
		r.Get("/pay-by-zelle", s.handleZellePage)
	})
	r.With(activateLimit).Post("/api/activate", s.handleActivate)

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(limit)
		r.Post("/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.Auth.RequireAdmin)
			r.Post("/logout", s.handleAdminLogout)
			r.Get("/stats", s.handleAdminStats)
			r.Post("/tags/{token}/block", s.handleAdminBlock)
			r.Post("/tags/{token}/unblock", s.handleAdminUnblock)
			r.Get("/tags/{token}/audit", s.handleAdminAudit)
			r.Post("/import", s.handleAdminImport)
			r.Get("/export", s.handleAdminExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	grace := s.cfg.ShutdownTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(sctx)
}
