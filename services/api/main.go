package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coursescope/server/pkg/api"
	"github.com/coursescope/server/pkg/bootstrap"
	"github.com/coursescope/server/pkg/infrastructure/auth"
	"github.com/coursescope/server/pkg/infrastructure/sentry"
)

func main() {
	ctx := context.Background()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		slog.Error("Service init failed", "error", err)
		os.Exit(1)
	}
	logger := bootstrap.NewLogger("api")

	_ = sentry.Init(sentry.Config{
		DSN:         svc.Config.SentryDSN,
		ServerName:  "api",
		Environment: svc.Config.ProjectID,
	}, logger)

	var verifier auth.TokenVerifier
	if !svc.Config.AuthDisabled {
		v, err := auth.NewVerifier(ctx, svc.Config.ProjectID)
		if err != nil {
			logger.Error("Auth init failed", "error", err)
			os.Exit(1)
		}
		verifier = v
	} else {
		logger.Warn("Auth DISABLED (AUTH_DISABLED=true)")
	}

	server := api.NewServer(svc, verifier, logger)
	addr := ":" + svc.Config.Port
	logger.Info("API listening", "addr", addr)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
