// Package postgres stores items in PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/unkn0wn-root/cacheaside/internal/item"
)

const schema = `CREATE TABLE IF NOT EXISTS items (
	id          SERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const columns = "id, name, description, created_at"

type Config struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type DB struct {
	db *sql.DB
}

var _ item.Store = (*DB)(nil)

// Open opens the pool and pings it once.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	d := New(db)
	if err := d.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an existing pool.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	var one int
	if err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}
	return nil
}

func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to create items table")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (item.Item, error) {
	var (
		it   item.Item
		desc sql.NullString
	)
	if err := row.Scan(&it.ID, &it.Name, &desc, &it.CreatedAt); err != nil {
		return item.Item{}, err
	}
	if desc.Valid {
		it.Description = &desc.String
	}
	return it, nil
}

func (d *DB) List(ctx context.Context) ([]item.Item, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+columns+" FROM items ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items")
	}
	defer rows.Close()

	list := []item.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list items")
	}
	return list, nil
}

func (d *DB) Get(ctx context.Context, id int64) (item.Item, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+columns+" FROM items WHERE id = $1", id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, item.ErrNotFound
	}
	if err != nil {
		return item.Item{}, errors.Wrapf(err, "failed to get item %d", id)
	}
	return it, nil
}

func (d *DB) Create(ctx context.Context, in item.Input) (item.Item, error) {
	row := d.db.QueryRowContext(ctx,
		"INSERT INTO items (name, description) VALUES ($1, $2) RETURNING "+columns,
		in.Name, in.Description)
	it, err := scanItem(row)
	if err != nil {
		return item.Item{}, errors.Wrap(err, "failed to create item")
	}
	return it, nil
}

func (d *DB) Update(ctx context.Context, id int64, in item.Input) (item.Item, error) {
	row := d.db.QueryRowContext(ctx,
		"UPDATE items SET name = $1, description = $2 WHERE id = $3 RETURNING "+columns,
		in.Name, in.Description, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, item.ErrNotFound
	}
	if err != nil {
		return item.Item{}, errors.Wrapf(err, "failed to update item %d", id)
	}
	return it, nil
}

func (d *DB) Delete(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete item %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to delete item %d", id)
	}
	if n == 0 {
		return item.ErrNotFound
	}
	return nil
}
