package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dropworks/drop-admin/internal/api"
	"github.com/dropworks/drop-admin/internal/auth"
	"github.com/dropworks/drop-admin/internal/config"
	"github.com/dropworks/drop-admin/internal/extractor"
	"github.com/dropworks/drop-admin/internal/fetcher"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/pipeline"
	"github.com/dropworks/drop-admin/internal/server"
	"github.com/dropworks/drop-admin/internal/store"
	"github.com/dropworks/drop-admin/internal/telemetry"
)

func main() {
	configPath := config.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := cfg.Logging
	logCfg.Development = cfg.Debug
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting drop-admin",
		logger.String("address", cfg.Server.Address()),
		logger.Bool("debug", cfg.Debug),
	)

	ctx := context.Background()

	db, err := store.New(ctx, cfg.Mongo, log)
	if err != nil {
		log.Error("Failed to connect to store", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(ctx); closeErr != nil {
			log.Error("Failed to close store", logger.Error(closeErr))
		}
	}()

	metrics := telemetry.New()

	machine := pipeline.New(
		db.Records(),
		fetcher.New(fetcher.Config{
			Timeout:   cfg.Extract.FetchTimeout,
			UserAgent: cfg.Extract.UserAgent,
		}),
		extractor.NewPostExtractor(),
		metrics,
		log,
	)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	handlers := api.NewHandlers(cfg, db.Records(), db.Admins(), machine, jwtManager, metrics, log)
	router := api.NewRouter(cfg, handlers, jwtManager, log)

	srv := server.New(server.Config{
		Address:      cfg.Server.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router)

	if err := server.RunWithGracefulShutdown(ctx, srv, log); err != nil {
		log.Error("Server error", logger.Error(err))
		os.Exit(1)
	}

	// Let in-flight extraction sequences persist their outcome before the
	// store handle is closed.
	log.Info("Draining in-flight extractions")
	machine.Wait()
}
