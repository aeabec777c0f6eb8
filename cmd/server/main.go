// Command server runs the console access API.
//
//	@title						Console Access API
//	@version					1.0
//	@description				Identity verification and role-scoped access for the business console.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/opsdesk/console-access/internal/api"
	"github.com/opsdesk/console-access/internal/api/handler"
	"github.com/opsdesk/console-access/internal/core/ports"
	"github.com/opsdesk/console-access/internal/core/service"
	"github.com/opsdesk/console-access/internal/infrastructure/db/memory"
	"github.com/opsdesk/console-access/internal/infrastructure/db/mongo"
	"github.com/opsdesk/console-access/internal/infrastructure/db/postgres"
	"github.com/opsdesk/console-access/internal/infrastructure/db/redis"
	"github.com/opsdesk/console-access/internal/infrastructure/lock"
	"github.com/opsdesk/console-access/internal/infrastructure/queue"
	"github.com/opsdesk/console-access/internal/pkg/config"
	"github.com/opsdesk/console-access/pkg/logger"
	"github.com/opsdesk/console-access/pkg/password"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	credentials   ports.CredentialRepository
	collaborators ports.CollaboratorRepository
	checks        map[string]handler.Check
	close         func(context.Context)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  logger.PrettyFor(cfg.Env),
		Service: "console-access",
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	guard, closeGuard, err := adminGuard(ctx, cfg, log, st.checks)
	if err != nil {
		return err
	}
	defer closeGuard()

	hasher := password.New(password.DefaultIterations)
	tokens := service.NewTokenService(cfg.JWTSecret)
	dispatcher := queue.NewDispatcher(cfg.MigrationWorkers, log)

	accounts := service.NewAccountService(st.credentials, st.collaborators, hasher, guard, dispatcher, log)
	auth := service.NewAuthService(st.credentials, hasher, tokens, log)
	collaborators := service.NewCollaboratorService(st.collaborators, service.NewVisibilityResolver(st.collaborators))

	if _, err := service.SeedAdmin(ctx, accounts, st.credentials, cfg.Seed.AdminIdentifier, cfg.Seed.AdminPassword, log); err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Auth:          auth,
		Accounts:      accounts,
		Collaborators: collaborators,
		Checks:        st.checks,
		Cookie:        handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		Logger:        log,
	})
	metricsServer := api.NewMetricsServer()

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		log.Info().Str("port", cfg.MetricsPort).Msg("metrics listening")
		if err := metricsServer.Start(":" + cfg.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics shutdown")
	}
	log.Info().Msg("stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		creds := mongo.NewCredentialRepository(db)
		if err := creds.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")
		return &stores{
			credentials:   creds,
			collaborators: mongo.NewCollaboratorRepository(db),
			checks:        map[string]handler.Check{"mongodb": mongo.Ping(db)},
			close:         func(ctx context.Context) { disconnectMongo(ctx, client, log) },
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("postgres connected, migrations applied")
		return &stores{
			credentials:   postgres.NewCredentialRepository(db),
			collaborators: postgres.NewCollaboratorRepository(db),
			checks:        map[string]handler.Check{"postgres": db.PingContext},
			close:         func(context.Context) { closeSQL(db, log) },
		}, nil

	default:
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{
			credentials:   store,
			collaborators: store.Collaborators(),
			checks:        map[string]handler.Check{},
			close:         func(context.Context) {},
		}, nil
	}
}

// adminGuard returns the Redis lock when Redis is configured, otherwise an
// in-process lock. The Redis readiness check is added to checks.
func adminGuard(ctx context.Context, cfg *config.Config, log zerolog.Logger, checks map[string]handler.Check) (ports.AdminGuard, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Warn().Str("env", cfg.Env).Msg("REDIS_ADDR not set; admin guard only covers this instance")
		return lock.NewLocal(), func() {}, nil
	}

	client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return nil, nil, err
	}
	checks["redis"] = redis.Ping(client)
	return redis.NewAdminLock(client, log), func() { closeRedis(client, log) }, nil
}

func disconnectMongo(ctx context.Context, client *mongodriver.Client, log zerolog.Logger) {
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}

func closeSQL(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("postgres close")
	}
}

func closeRedis(client *goredis.Client, log zerolog.Logger) {
	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
}
