// Package db opens the optional run journal database.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ai-slovo/internal/pkg/config"
)

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns a small pool; the worker writes one row
// per run.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("DATABASE_URL not set")

// Open creates a pgx-backed pool for dsn and pings it.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := ConnectionConfigFromEnv(logger)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime))
	return db, nil
}

// ConnectionConfigFromEnv reads DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME.
func ConnectionConfigFromEnv(logger *slog.Logger) ConnectionConfig {
	cfg := DefaultConnectionConfig()
	t := config.NewTracker(nil, logger)
	positive := func(v int) error { return config.ValidateIntRange(v, 1, 100) }
	positiveDur := func(d time.Duration) error { return config.ValidateDuration(d, time.Second, 24*time.Hour) }

	cfg.MaxOpenConns = config.Track(t, "db_max_open_conns", config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, positive))
	cfg.MaxIdleConns = config.Track(t, "db_max_idle_conns", config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, positive))
	cfg.ConnMaxLifetime = config.Track(t, "db_conn_max_lifetime", config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, positiveDur))
	cfg.ConnMaxIdleTime = config.Track(t, "db_conn_max_idle_time", config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, positiveDur))
	return cfg
}
