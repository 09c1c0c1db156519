// Command wanderlog runs the travel-journal HTTP API.
//
// Connectivity faults at startup are warnings, not fatal: the server comes
// up in degraded mode and the affected routes answer 503 until the backing
// service is reachable on a restart.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kincraig/wanderlog/internal/config"
	"github.com/kincraig/wanderlog/internal/database"
	"github.com/kincraig/wanderlog/internal/database/postgres"
	"github.com/kincraig/wanderlog/internal/filestore"
	"github.com/kincraig/wanderlog/internal/filestore/minio"
	"github.com/kincraig/wanderlog/internal/logger"
	"github.com/kincraig/wanderlog/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(nil).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := connectDatabase(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	var client *database.Client
	if db != nil {
		client = database.NewClient(db, cfg.Database.QueryTimeout)
	}

	store := connectStorage(ctx, cfg, log)

	srv := server.New(cfg, log, client, store)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *postgres.Driver {
	if !cfg.Database.Configured() {
		log.Warn().Msg("database not configured; query routes disabled")
		return nil
	}

	dbCfg := database.DefaultConfig(cfg.Database.DSN())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbCfg.QueryTimeout = cfg.Database.QueryTimeout

	db, err := postgres.New(ctx, dbCfg)
	if err != nil {
		log.Warn().Err(err).Msg("database unreachable; query routes disabled")
		return nil
	}

	log.Info().Str("host", cfg.Database.Host).Str("name", cfg.Database.Name).Msg("database connected")
	return db
}

func connectStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) *filestore.Service {
	if !cfg.Minio.Configured() {
		log.Warn().Msg("object storage not configured; storage routes disabled")
		return nil
	}

	store, err := minio.New(ctx, &filestore.Config{
		Endpoint:  cfg.Minio.Address(),
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("object storage unreachable; storage routes disabled")
		return nil
	}

	svc := filestore.NewService(store, cfg.Minio.Bucket, cfg.Minio.Address(), log)
	if err := svc.EnsureBucket(ctx); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Minio.Bucket).Msg("bucket check failed")
	}

	log.Info().Str("endpoint", cfg.Minio.Address()).Str("bucket", cfg.Minio.Bucket).Msg("object storage connected")
	return svc
}
