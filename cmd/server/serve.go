package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"gymmanager/workout-app/internal/api"
	"gymmanager/workout-app/internal/config"
	"gymmanager/workout-app/internal/logging"
	"gymmanager/workout-app/internal/metadata"
	"gymmanager/workout-app/internal/offline"
	"gymmanager/workout-app/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log.Info().Msg("starting workout server")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Local store ---
	store, err := openStore(ctx, cfg.Database, logging.Component(log, "store"))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	// --- Blob storage ---
	files, err := openFileStorage(ctx, &cfg, logging.Component(log, "storage"))
	if err != nil {
		return fmt.Errorf("init file storage: %w", err)
	}

	// --- Pending-action queue ---
	slot, closeSlot, err := openSlot(ctx, cfg.Queue)
	if err != nil {
		return fmt.Errorf("init queue slot: %w", err)
	}
	defer closeSlot()

	replayer, err := newReplayer(cfg.Sync, logging.Component(log, "replayer"))
	if err != nil {
		return fmt.Errorf("init replayer: %w", err)
	}
	queue, err := offline.NewQueue(ctx, slot, replayer, cfg.Queue.ReplaySpacing, logging.Component(log, "queue"))
	if err != nil {
		return fmt.Errorf("init queue: %w", err)
	}
	monitor := offline.NewMonitor(queue, cfg.Sync, log)
	defer monitor.Stop()
	go monitor.Run(ctx)

	// --- Services ---
	fetcher := metadata.NewClient(cfg.Metadata, logging.Component(log, "metadata"))
	authService, err := service.NewAuthService(cfg.Auth.PasswordHash, cfg.JWT.Secret, cfg.JWT.Expiration)
	if err != nil {
		return err
	}
	if !authService.Enabled() {
		log.Warn().Msg("auth.password_hash is empty; API is unauthenticated")
	}

	workoutService, err := service.NewWorkoutService(store, files, fetcher, service.WorkoutServiceConfig{
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		PresignTTL:      cfg.Storage.PresignTTL,
		HandleCacheSize: cfg.Storage.HandleCache,
	}, logging.Component(log, "workouts"), service.WithOfflineRecorder(queue, monitor))
	if err != nil {
		return err
	}
	defer workoutService.Close()

	// --- HTTP ---
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		WorkoutService: workoutService,
		Files:          files,
		Fetcher:        fetcher,
		Queue:          queue,
		Monitor:        monitor,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            logging.Component(log, "http"),
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}
