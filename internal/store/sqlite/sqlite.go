// Package sqlite stores items in SQLite through modernc.org/sqlite. It is
// meant for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/cacheaside/internal/item"
)

const schema = `CREATE TABLE IF NOT EXISTS items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT,
	created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

const columns = "id, name, description, created_at"

type DB struct {
	db *sql.DB
}

var _ item.Store = (*DB)(nil)

// Open opens path, or an in-memory database when path is empty or
// ":memory:".
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Every connection to ":memory:" is its own database, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable WAL")
		}
	}

	d := &DB{db: db}
	if err := d.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
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
		it      item.Item
		desc    sql.NullString
		created string
	)
	if err := row.Scan(&it.ID, &it.Name, &desc, &created); err != nil {
		return item.Item{}, err
	}
	if desc.Valid {
		it.Description = &desc.String
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return item.Item{}, errors.Wrapf(err, "bad created_at %q", created)
	}
	it.CreatedAt = ts
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
	row := d.db.QueryRowContext(ctx, "SELECT "+columns+" FROM items WHERE id = ?", id)
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
		"INSERT INTO items (name, description) VALUES (?, ?) RETURNING "+columns,
		in.Name, in.Description)
	it, err := scanItem(row)
	if err != nil {
		return item.Item{}, errors.Wrap(err, "failed to create item")
	}
	return it, nil
}

func (d *DB) Update(ctx context.Context, id int64, in item.Input) (item.Item, error) {
	row := d.db.QueryRowContext(ctx,
		"UPDATE items SET name = ?, description = ? WHERE id = ? RETURNING "+columns,
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
	res, err := d.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
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
