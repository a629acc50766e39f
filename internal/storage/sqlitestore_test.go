package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewSQLiteStore(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	defer store.Close()

	roundTrip(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewSQLiteStore(ctx, dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, KeySearchHistory, []byte(`["levis"]`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read(ctx, KeySearchHistory)
	require.NoError(t, err)
	assert.Equal(t, `["levis"]`, string(got))
}

func TestSQLiteStoreUpsertsExistingKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Write(ctx, KeyCart, []byte(`[]`)))
	require.NoError(t, store.Write(ctx, KeyCart, []byte(`[{"id":1}]`)))

	got, err := store.Read(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))

	require.NoError(t, store.Delete(ctx, KeyCart))
	_, err = store.Read(ctx, KeyCart)
	assert.True(t, errors.Is(err, ErrNotFound))
}
