package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vidhub/account-service/internal/api"
	"github.com/vidhub/account-service/internal/api/handler"
	"github.com/vidhub/account-service/internal/core/ports"
	"github.com/vidhub/account-service/internal/core/security"
	"github.com/vidhub/account-service/internal/core/service"
	mongostore "github.com/vidhub/account-service/internal/infrastructure/db/mongo"
	pgstore "github.com/vidhub/account-service/internal/infrastructure/db/postgres"
	redisstore "github.com/vidhub/account-service/internal/infrastructure/db/redis"
	"github.com/vidhub/account-service/internal/infrastructure/queue"
	"github.com/vidhub/account-service/internal/infrastructure/storage"
	"github.com/vidhub/account-service/internal/pkg/config"
	"github.com/vidhub/account-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "account-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]handler.HealthCheck{}

	repo, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	checks["redis"] = redisstore.HealthCheck(rdb)

	uploader, err := storage.NewS3Uploader(ctx, storage.Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		PublicURL: cfg.S3.PublicURL,
	})
	if err != nil {
		return err
	}

	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshSecret: cfg.Auth.RefreshSecret,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return err
	}

	serializer := queue.NewSerializer(cfg.Serializer.Workers, logger.Component("serializer"))
	// Stopped explicitly after the HTTP server drains.
	serializer.Start(context.Background())
	defer serializer.Stop()

	revoker := redisstore.NewRevocationList(rdb)
	sessions := service.NewSessionService(service.Deps{
		Repo:       repo,
		Hasher:     security.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:     tokens,
		Uploader:   uploader,
		Revoker:    revoker,
		Serializer: serializer,
	}, logger.Component("session"))

	e := api.NewRouter(api.RouterConfig{
		CORSOrigins:   cfg.CORSOrigins,
		BodyLimit:     cfg.BodyLimit,
		SecureCookies: cfg.CookieSecure,
	}, api.Dependencies{
		Sessions:     sessions,
		Verifier:     tokens,
		Revoker:      revoker,
		HealthChecks: checks,
		Log:          logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore connects the configured credential store and registers its readiness probe.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.HealthCheck) (ports.AccountRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, nil, err
		}
		if err := pgstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checks["postgres"] = pgstore.HealthCheck(db)
		return pgstore.NewAccountRepository(db), closer(db), nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "account-service",
		})
		if err != nil {
			return nil, nil, err
		}
		repo := mongostore.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		checks["mongodb"] = mongostore.HealthCheck(db)
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	}
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
