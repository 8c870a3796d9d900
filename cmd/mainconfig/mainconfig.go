// Package mainconfig holds the client wiring shared by the api and
// reminder-worker binaries.
package mainconfig

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/wolfman30/medspa-practice/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medspa-practice/internal/config"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

// LoadAWSConfig builds the SDK config, using static credentials when both
// keys are set and the default chain otherwise.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// NewSQSClient points at AWS_ENDPOINT_OVERRIDE when set (LocalStack).
func NewSQSClient(awsCfg aws.Config, cfg *appconfig.Config) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewSESClient points at AWS_ENDPOINT_OVERRIDE when set (LocalStack).
func NewSESClient(awsCfg aws.Config, cfg *appconfig.Config) *sesv2.Client {
	return sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// OpenPool connects the pgx pool used by the appointment, inventory, catalog
// and reminder stores.
func OpenPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Connect opens the optional backing services. Postgres is skipped when
// DATABASE_URL is empty and Redis when REDIS_ADDR is unreachable.
func Connect(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (bootstrap.Deps, func(), error) {
	deps := bootstrap.Deps{Config: cfg, Logger: logger}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		pool, err := OpenPool(ctx, cfg)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, pool.Close)
		deps.Pool = pool

		sqlDB, err := openSQL(cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		closers = append(closers, func() { _ = sqlDB.Close() })
		deps.SQL = sqlDB
	}

	if client := bootstrap.BuildRedisClient(ctx, cfg, logger, true); client != nil {
		closers = append(closers, func() { _ = client.Close() })
		deps.Redis = client
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("aws config unavailable, calendar sync and SES disabled", "error", err)
		return deps, cleanup, nil
	}
	deps.SQS = NewSQSClient(awsCfg, cfg)
	deps.SES = NewSESClient(awsCfg, cfg)
	return deps, cleanup, nil
}

// openSQL opens the lib/pq handle used by the notification attempt log.
func openSQL(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
