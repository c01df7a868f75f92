package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cacheaside/internal/item"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.EnsureSchema(ctx))
	it, err := b.Create(ctx, item.Input{Name: "gadget"})
	require.NoError(t, err)
	assert.Equal(t, "gadget", it.Name)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	assert.ErrorContains(t, err, "mysql")
}
