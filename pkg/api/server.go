// Package api implements the HTTP surface of the service: uploads, activity
// management, analysis retrieval, chart series and exports.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/bootstrap"
	"github.com/coursescope/server/pkg/infrastructure/auth"
	httputil "github.com/coursescope/server/pkg/infrastructure/http"
	"github.com/coursescope/server/pkg/infrastructure/sentry"
	"github.com/coursescope/server/pkg/narrative"
)

// Server carries the dependencies of every handler.
type Server struct {
	DB        shared.Database
	Store     shared.BlobStore
	Pub       shared.Publisher
	Config    *bootstrap.Config
	Verifier  auth.TokenVerifier
	Logger    *slog.Logger
	Narrative narrative.Generator
}

func NewServer(svc *bootstrap.Service, verifier auth.TokenVerifier, logger *slog.Logger) *Server {
	return &Server{
		DB:        svc.DB,
		Store:     svc.Store,
		Pub:       svc.Pub,
		Config:    svc.Config,
		Verifier:  verifier,
		Logger:    logger,
		Narrative: narrative.FromEnv(svc.Config.GeminiAPIKey),
	}
}

// Router assembles the chi router with logging, panic recovery and the
// optional auth gate on the versioned API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(s.Verifier, s.Config.AuthDisabled))
		r.Route("/activities", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleList)
			r.Route("/{activityID}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Delete("/", s.handleDelete)
				r.Get("/analysis", s.handleAnalysis)
				r.Get("/series", s.handleSeries)
				r.Get("/export", s.handleExport)
			})
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				sentry.CaptureException(err, map[string]interface{}{"path": r.URL.Path}, s.Logger)
				httputil.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
