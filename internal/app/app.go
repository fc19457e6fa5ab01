// Package app wires the components of the service together and runs them
// until the context is canceled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vadimbarashkov/shortlink/internal/adapter/cache"
	"github.com/vadimbarashkov/shortlink/internal/adapter/queue"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/sqldb"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/pkg/database"
	"github.com/vadimbarashkov/shortlink/pkg/tracing"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
)

type redirectRepository interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error)
	IncrementClicks(ctx context.Context, shortCode string) (*entity.URLMapping, error)
}

type clickRecorder interface {
	RecordClick(ctx context.Context, key string, mappingID int64, at time.Time) error
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeLog()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Setup(ctx, tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Env,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			Writer:      os.Stdout,
		})
		if err != nil {
			return fmt.Errorf("%s: failed to setup tracing: %w", op, err)
		}
		defer shutdown(context.Background())
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	urlRepo := sqldb.NewURLMappingRepository(db)
	clickRepo := sqldb.NewClickEventRepository(db)

	var redirectRepo redirectRepository = urlRepo

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}

		redirectRepo = cache.NewMappingCache(client, urlRepo, cfg.Redis.TTL, logger.Logger)
	}

	g, ctx := errgroup.WithContext(ctx)

	var clicks clickRecorder = clickRepo

	if cfg.Clicks.Mode == config.ClicksModeQueue {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return fmt.Errorf("%s: failed to connect to rabbitmq: %w", op, err)
		}
		defer conn.Close()

		pubCh, err := queue.OpenChannel(conn, cfg.RabbitMQ.Queue)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer pubCh.Close()

		consCh, err := queue.OpenChannel(conn, cfg.RabbitMQ.Queue)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer consCh.Close()

		clicks = queue.NewClickPublisher(pubCh, cfg.RabbitMQ.Queue)
		consumer := queue.NewClickConsumer(consCh, cfg.RabbitMQ.Queue, clickRepo, cfg.Clicks.Workers, logger.Logger)

		g.Go(func() error {
			if err := consumer.Run(ctx); err != nil {
				return fmt.Errorf("%s: click consumer stopped: %w", op, err)
			}

			return nil
		})
	}

	gen := shortcode.New()

	urlUseCase := usecase.NewURLUseCase(gen, urlRepo, cfg.ShortCode.MaxAttempts)
	redirectUseCase := usecase.NewRedirectUseCase(gen, redirectRepo, clicks)
	analyticsUseCase := usecase.NewAnalyticsUseCase(urlRepo, clickRepo, loc)

	var handler http.Handler = delivery.NewRouter(
		logger,
		delivery.HeaderIdentity(cfg.Auth.Header),
		urlUseCase,
		redirectUseCase,
		analyticsUseCase,
		delivery.WithAllowedHeaders(cfg.Auth.Header),
	)
	if cfg.Tracing.Enabled {
		handler = otelhttp.NewHandler(handler, "shortlink")
	}

	server := newServer(ctx, &cfg.HTTPServer, handler)

	g.Go(func() error {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("storage", cfg.Storage.Driver),
			slog.String("clicks_mode", cfg.Clicks.Mode),
		)

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// newServer builds the http server. Requests get a context detached from ctx
// cancellation, so requests in flight at shutdown run to completion within
// the shutdown timeout.
func newServer(ctx context.Context, cfg *config.HTTPServer, handler http.Handler) *http.Server {
	baseCtx := context.WithoutCancel(ctx)

	return &http.Server{
		Addr:           cfg.Addr(),
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return baseCtx
		},
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	const op = "app.openDatabase"

	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err = database.New(ctx, database.DriverSQLite, cfg.Storage.SQLiteDSN())
	default:
		db, err = database.New(
			ctx,
			database.DriverPostgres,
			cfg.Postgres.DSN(),
			database.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			database.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			database.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			database.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	return db, nil
}
