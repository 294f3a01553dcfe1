package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chat-assistant/internal/common/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLClient owns the inventory store connection pool. The executor borrows
// scoped connections from DB per query.
type SQLClient struct {
	DB     *sql.DB
	Driver string
}

// NewSQL opens the pool for the configured driver: "postgres" (lib/pq),
// "pgx" (pgx stdlib) or "sqlite" (modernc).
func NewSQL(cfg config.DatabaseConfig) (*SQLClient, error) {
	dsn := cfg.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Postgres.MaxConnections)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: driver}, nil
}

func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
