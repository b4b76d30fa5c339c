package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/storage"
	"github.com/prperemyshlev/account-service/pkg/database"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "account-service"

// Pinger is a dependency that can report its availability
type Pinger interface {
	Ping(ctx context.Context) error
}

type Infrastructure interface {
	Users() repository.UserRepository
	Uploader() storage.Uploader
	// Redis returns nil when the profile cache is disabled
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() metric.MeterProvider
	// HealthChecks lists the dependencies reported by /health, keyed by name
	HealthChecks() map[string]Pinger

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	mongo          *database.Mongo
	postgres       *database.Postgres
	redis          *database.Redis
	repos          *repository.Repositories
	uploader       storage.Uploader
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *sdkmetric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	if err := i.connectStore(ctx, cfg); err != nil {
		i.closeConnections()
		return nil, err
	}

	if cfg.Redis.Enabled {
		redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			i.closeConnections()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		i.redis = redis
	}

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		i.closeConnections()
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	i.uploader = uploader

	logger.Info("Infrastructure ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("cache", cfg.Redis.Enabled),
	)

	return i, nil
}

func (i *infrastructure) connectStore(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Driver {
	case repository.DriverMongo:
		mongo, err := database.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout.Duration)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		i.mongo = mongo
	case repository.DriverPostgres:
		postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		i.postgres = postgres
		if err := postgres.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate PostgreSQL: %w", err)
		}
	}

	repos, err := repository.NewRepositories(ctx, cfg.Store.Driver, repository.Backends{
		Mongo:    i.mongo,
		Postgres: i.postgres,
	})
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	i.repos = repos

	return nil
}

func newUploader(ctx context.Context, cfg config.Config) (storage.Uploader, error) {
	switch cfg.Storage.Driver {
	case storage.DriverS3:
		return storage.NewS3Uploader(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			PublicURL:       cfg.Storage.PublicURL,
			KeyPrefix:       cfg.Storage.KeyPrefix,
		})
	case storage.DriverMinio:
		return storage.NewMinioUploader(ctx, storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			PublicURL: cfg.Storage.PublicURL,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (i *infrastructure) Users() repository.UserRepository {
	return i.repos.User
}

func (i *infrastructure) Uploader() storage.Uploader {
	return i.uploader
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) HealthChecks() map[string]Pinger {
	checks := make(map[string]Pinger)
	if i.mongo != nil {
		checks["mongo"] = i.mongo
	}
	if i.postgres != nil {
		checks["postgres"] = i.postgres
	}
	if i.redis != nil {
		checks["redis"] = i.redis
	}
	if p, ok := i.uploader.(Pinger); ok {
		checks["storage"] = p
	}
	return checks
}

func (i *infrastructure) closeConnections() error {
	var closers []func() error
	if i.mongo != nil {
		closers = append(closers, i.mongo.Close)
	}
	if i.postgres != nil {
		closers = append(closers, i.postgres.Close)
	}
	if i.redis != nil {
		closers = append(closers, i.redis.Close)
	}

	errs := make(chan error, len(closers))
	for _, closeFn := range closers {
		go func(fn func() error) { errs <- fn() }(closeFn)
	}

	var joined error
	for range closers {
		joined = errors.Join(joined, <-errs)
	}
	return joined
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	connErr := i.closeConnections()
	return errors.Join(connErr, observability.Shutdown(ctx, i.meterProvider, i.logger))
}
