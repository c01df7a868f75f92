// Package store opens the relational backend that holds items.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/unkn0wn-root/cacheaside/internal/item"
	"github.com/unkn0wn-root/cacheaside/internal/store/postgres"
	"github.com/unkn0wn-root/cacheaside/internal/store/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backend is an item.Store that also owns its connection pool.
type Backend interface {
	item.Store
	// Ping runs a trivial query.
	Ping(ctx context.Context) error
	// EnsureSchema creates the items table if it does not exist.
	EnsureSchema(ctx context.Context) error
	Close() error
}

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the configured driver and verifies the connection.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		b, err = postgres.Open(ctx, postgres.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	case DriverSQLite:
		b, err = sqlite.Open(ctx, cfg.DSN)
	default:
		return nil, errors.Errorf("unknown store driver %q: only 'postgres' and 'sqlite' are supported", cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", cfg.Driver)
	}
	return b, nil
}
