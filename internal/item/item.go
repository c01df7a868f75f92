// Package item holds the item resource: its model, cache keys, the store
// contract and the Service that puts the cache in front of the store.
package item

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by stores and the Service when no item has the
	// requested id.
	ErrNotFound = errors.New("item not found")
	// ErrNameRequired rejects input whose trimmed name is empty.
	ErrNameRequired = errors.New("name is required")
)

// Item is the stored record. It is also the cached JSON document.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Input carries the client-writable fields for create and replace.
type Input struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Normalize trims the name and rejects an empty one.
func (in Input) Normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, ErrNameRequired
	}
	return in, nil
}

// Store is the authoritative item storage.
//
// Get, Update and Delete return ErrNotFound when no row matches. List is
// ordered newest first.
type Store interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, in Input) (Item, error)
	Update(ctx context.Context, id int64, in Input) (Item, error)
	Delete(ctx context.Context, id int64) error
}
