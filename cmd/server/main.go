// Package main initializes and starts the fishkms HTTP server, setting up
// configuration, logging, the master-key store, the entropy source, the
// cipher engine, the unlock ledger, and the gateway routes.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"fishkms/internal/config"
	"fishkms/internal/cryptox"
	"fishkms/internal/db"
	"fishkms/internal/entropy"
	"fishkms/internal/ledger"
	"fishkms/internal/logger"
	"fishkms/internal/models"
	"fishkms/internal/repository"
	"fishkms/internal/server/handler/http"
	"fishkms/internal/service"
	"fishkms/internal/vault"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config-file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize the PostgreSQL master-key store.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer func() { _ = postgresDB.Close() }()

	// Build the key vault over its repository.
	keyRepo := repository.NewPostgresKeyRepository(postgresDB)
	keyVault := vault.New(keyRepo, zapLogger)

	// Select the entropy source. Camera mode still degrades to demo
	// sampling per capture when the device fails.
	var source service.Source
	switch models.EntropyMode(options.EntropyMode) {
	case models.ModeCamera:
		source = entropy.NewCameraSource(
			entropy.V4L2Factory(options.CameraIndex),
			options.Tunables,
			time.Duration(options.CaptureTimeoutSeconds)*time.Second,
			zapLogger,
		)
	default:
		source = entropy.DemoSource{}
	}

	// Compose the KMS service.
	kms := service.New(service.Deps{
		Source:      source,
		Cipher:      cryptox.NewEngine(keyVault),
		Keys:        keyVault,
		Ledger:      ledger.New(),
		Window:      time.Duration(options.UnlockWindowSeconds) * time.Second,
		RequireLive: options.RequireLive,
		Log:         zapLogger,
	})

	// Build the router with middleware and routes.
	kmsHandler := &http.KMSHandler{Service: kms}
	router := http.NewRouter(kmsHandler, options.APIKey, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	// Shut down cleanly on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server",
		zap.String("addr", options.Addr),
		zap.String("entropyMode", options.EntropyMode),
		zap.Int("unlockWindowSeconds", options.UnlockWindowSeconds),
	)
	if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
