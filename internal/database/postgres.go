package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ancsystem/anc-notifier/internal/config"
)

// Postgres wraps the SQL database connection
type Postgres struct {
	*sql.DB
	dsn string
}

// NewPostgres creates a new PostgreSQL connection
func NewPostgres(cfg config.DatabaseConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(max(1, cfg.MaxConnections/4))
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{DB: db, dsn: cfg.DSN()}, nil
}

// HealthCheck verifies the database connection is healthy
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.PingContext(ctx)
}

// NewListener opens a dedicated LISTEN/NOTIFY connection. The pool's
// connections cannot be used for LISTEN since they are shared.
// onEvent receives connection state changes (connected, disconnected, reconnected).
func (p *Postgres) NewListener(onEvent func(ev pq.ListenerEventType, err error)) *pq.Listener {
	return pq.NewListener(p.dsn, 10*time.Second, time.Minute, onEvent)
}
