// Package database implements the readiness probe and schema bootstrap for
// the managed PostgreSQL server backing the trading application.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/stocktrader-ops/tradectl/internal/provisioning"
)

// Schema statements are individually idempotent so the bootstrap can be
// repeated against a database that is already set up.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id          SERIAL PRIMARY KEY,
		owner       TEXT NOT NULL UNIQUE,
		balance     NUMERIC(14, 2) NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		id          SERIAL PRIMARY KEY,
		account_id  INTEGER NOT NULL REFERENCES accounts (id),
		symbol      TEXT NOT NULL,
		quantity    INTEGER NOT NULL DEFAULT 0,
		UNIQUE (account_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id          SERIAL PRIMARY KEY,
		account_id  INTEGER NOT NULL REFERENCES accounts (id),
		symbol      TEXT NOT NULL,
		quantity    INTEGER NOT NULL,
		price       NUMERIC(14, 2) NOT NULL,
		side        TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
		executed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS trades_account_executed_idx
		ON trades (account_id, executed_at)`,
}

// conn is the slice of *pgx.Conn the bootstrapper uses.
type conn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string) error
	Close(ctx context.Context) error
}

// pgxConn adapts *pgx.Conn to the conn interface.
type pgxConn struct{ c *pgx.Conn }

func (p pgxConn) Ping(ctx context.Context) error { return p.c.Ping(ctx) }

func (p pgxConn) Exec(ctx context.Context, sql string) error {
	_, err := p.c.Exec(ctx, sql)
	return err
}

func (p pgxConn) Close(ctx context.Context) error { return p.c.Close(ctx) }

// Bootstrapper implements provisioning.DatabaseOps over pgx. The connect
// function is swappable for tests.
type Bootstrapper struct {
	connect func(ctx context.Context, connString string) (conn, error)
}

// NewBootstrapper creates a Bootstrapper connecting with pgx.
func NewBootstrapper() *Bootstrapper {
	return &Bootstrapper{
		connect: func(ctx context.Context, connString string) (conn, error) {
			c, err := pgx.Connect(ctx, connString)
			if err != nil {
				return nil, err
			}
			return pgxConn{c}, nil
		},
	}
}

// Ping reports whether the database accepts connections. This is an
// observation, not an action: a refused connection means not ready yet, so
// no error is surfaced.
func (b *Bootstrapper) Ping(ctx context.Context, connString string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := b.connect(probeCtx, connString)
	if err != nil {
		return false
	}
	defer c.Close(ctx)

	return c.Ping(probeCtx) == nil
}

// Bootstrap applies the application schema. Every statement is idempotent,
// so a re-run against an initialized database succeeds without changes.
func (b *Bootstrapper) Bootstrap(ctx context.Context, connString string) error {
	c, err := b.connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect for schema bootstrap: %w", err)
	}
	defer c.Close(ctx)

	for _, stmt := range schemaStatements {
		if err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", classify(err))
		}
	}
	return nil
}

// Postgres error classes that retrying cannot fix.
const (
	codeInsufficientPrivilege = "42501"
	codeInvalidAuthorization  = "28000"
	codeInvalidPassword       = "28P01"
)

// classify maps server errors onto the workflow error taxonomy so the caller
// can tell a fatal permission problem from a transient one.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeInsufficientPrivilege, codeInvalidAuthorization, codeInvalidPassword:
		return &provisioning.PermissionDeniedError{Resource: "database", Err: err}
	}
	return err
}
