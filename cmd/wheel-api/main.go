// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Command wheel-api runs the unfair wheel HTTP and WebSocket server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/unfairwheel/unfair-wheel-service/cmd/wheel-api/service"
	wheelsvc "github.com/unfairwheel/unfair-wheel-service/internal/service"
	"github.com/unfairwheel/unfair-wheel-service/pkg/constants"
	"github.com/unfairwheel/unfair-wheel-service/pkg/log"
	"github.com/unfairwheel/unfair-wheel-service/pkg/utils"
)

func main() {
	log.InitStructureLogConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up OpenTelemetry SDK", "error", err)
		os.Exit(1)
	}

	var cfg service.ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		slog.ErrorContext(ctx, "invalid server configuration", "error", err)
		os.Exit(1)
	}

	resolver := service.IdentityResolver(ctx)
	metadata := service.MetadataStorage(ctx)
	checkpoints := service.CheckpointStorage(ctx)

	registry := wheelsvc.NewActorRegistry(
		wheelsvc.WithRegistryCheckpoints(checkpoints),
	)
	writer := wheelsvc.NewGroupWriterOrchestrator(
		wheelsvc.WithWriterActorRegistry(registry),
		wheelsvc.WithWriterMetadata(metadata),
	)
	reader := wheelsvc.NewGroupReaderOrchestrator(
		wheelsvc.WithReaderActorRegistry(registry),
		wheelsvc.WithReaderMetadata(metadata),
	)

	api := service.NewWheelService(writer, reader)
	handler := otelhttp.NewHandler(api.Routes(resolver, cfg.FrontendOrigin), constants.ServiceName)

	// ReadHeaderTimeout only: full read timeouts would kill long-lived
	// WebSocket connections.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(gctx, "HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "HTTP server shutdown failed", "error", err)
		}
		// Actors drain after the server stops accepting requests so the
		// final mutations still reach their checkpoints.
		registry.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "server terminated with error", "error", err)
	}

	service.StorageShutdown()
	if err := otelShutdown(context.Background()); err != nil {
		slog.Error("failed to shut down OpenTelemetry SDK", "error", err)
	}
}
