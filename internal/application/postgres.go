package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"thirdcoast.systems/ytcomments/internal/config"
	"thirdcoast.systems/ytcomments/internal/db"
)

// ErrArchiveDisabled is returned when no archive DSN is configured.
var ErrArchiveDisabled = errors.New("comment archive disabled: ARCHIVE_DATABASE_DSN not set")

var (
	dbOpenBackoffBase  = 1 * time.Second
	dbOpenBackoffScale = 1.618
)

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// OpenDBPoolWithRetry initializes a new PostgreSQL connection pool with retry logic.
func OpenDBPoolWithRetry(ctx context.Context, conf config.Config) (*pgxpool.Pool, error) {
	if conf.ArchiveDSN == "" {
		return nil, ErrArchiveDisabled
	}

	var pool *pgxpool.Pool
	var lastErr error

	cfg, err := pgxpool.ParseConfig(conf.ArchiveDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	attempts := max(conf.DatabaseRetries, 1)

	slog.Info("connecting to database", "host", cfg.ConnConfig.Host)
	for i := 0; i < attempts; i++ {
		if pool, err = pgxpool.NewWithConfig(ctx, cfg); err == nil {
			break
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		backoff := time.Duration(float64(dbOpenBackoffBase) * math.Pow(dbOpenBackoffScale, float64(i)))
		slog.Warn("database connect failed, retrying", "error", err, "retry_in", backoff)
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
	}

	if pool == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to database after multiple attempts: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to database after multiple attempts")
	}

	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			slog.Info("pinged database", "host", cfg.ConnConfig.Host)
			return pool, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		backoff := time.Duration(float64(dbOpenBackoffBase) * math.Pow(dbOpenBackoffScale, float64(i)))
		slog.Warn("database ping failed, retrying", "error", err, "retry_in", backoff)
		if err := sleepCtx(ctx, backoff); err != nil {
			pool.Close()
			return nil, err
		}
	}
	pool.Close()
	return nil, fmt.Errorf("failed to ping database after multiple attempts: %w", lastErr)
}

// OpenArchive connects to the archive database and wraps it for use.
func OpenArchive(ctx context.Context, conf config.Config) (*db.DatabaseConnection, error) {
	pool, err := OpenDBPoolWithRetry(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &db.DatabaseConnection{Pool: pool}, nil
}
