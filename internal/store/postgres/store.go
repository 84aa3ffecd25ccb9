// Package postgres implements domain.AuditSink on top of pgx/v5, giving a
// gatewayd deployment an append-only record of every operator-set
// registration and of the first dispatch outcome of each command id,
// independent of its KVStore backend.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wmgateway/gateway/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Client wraps a pgxpool.Pool and manages migrations.
type Client struct {
	pool *pgxpool.Pool
}

// New creates a Client with a connection pool over dsn and verifies
// connectivity with a ping.
func New(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Client{pool: pool}, nil
}

// Close shuts down the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// RunMigrations applies the embedded migrations/*.sql files in
// lexicographic order, tracking applied filenames in schema_migrations.
func (c *Client) RunMigrations(ctx context.Context) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := c.pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("postgres: create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var exists bool
		if err := c.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)", entry.Name(),
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check migration %s: %w", entry.Name(), err)
		}
		if exists {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", entry.Name(), err)
		}

		tx, err := c.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("postgres: begin tx for %s: %w", entry.Name(), err)
		}
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: exec migration %s: %w", entry.Name(), err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", entry.Name()); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: record migration %s: %w", entry.Name(), err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("postgres: commit migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// AuditSink persists epoch registrations and command executions to
// Postgres. It implements domain.AuditSink.
type AuditSink struct {
	pool *pgxpool.Pool
}

var _ domain.AuditSink = (*AuditSink)(nil)

// NewAuditSink creates an AuditSink over an already-migrated Client.
func NewAuditSink(c *Client) *AuditSink {
	return &AuditSink{pool: c.pool}
}

// RecordEpoch appends a row recording that epoch was registered for
// setHash with the given canonical blob.
func (a *AuditSink) RecordEpoch(ctx context.Context, epoch domain.Epoch, setHash domain.Hash, blob []byte) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO epoch_audit (epoch, set_hash, set_blob) VALUES ($1, $2, $3)
		 ON CONFLICT (epoch) DO NOTHING`,
		int64(epoch), setHash.Bytes(), blob,
	)
	if err != nil {
		return fmt.Errorf("postgres: record epoch: %w", err)
	}
	return nil
}

// RecordExecution appends a row recording the outcome of dispatching id.
// Only the first outcome recorded for an id is kept: a later call for the
// same id (such as a retry after a failed dispatch) stores nothing.
func (a *AuditSink) RecordExecution(ctx context.Context, id domain.CommandID, executed bool) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO execution_audit (command_id, executed) VALUES ($1, $2)
		 ON CONFLICT (command_id) DO NOTHING`,
		id.Bytes(), executed,
	)
	if err != nil {
		return fmt.Errorf("postgres: record execution: %w", err)
	}
	return nil
}
