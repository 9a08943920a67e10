package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/opcache/internal/canon"
	"github.com/dreamware/opcache/internal/rowstore"
)

func TestResolveEnvironmentIsStableAcrossCalls(t *testing.T) {
	coord, _ := newTestCoordinator(t, Config{})
	r1, err := coord.ResolveEnvironment(context.Background(), "env-a", false, true)
	require.NoError(t, err)
	r2, err := coord.ResolveEnvironment(context.Background(), "env-a", false, true)
	require.NoError(t, err)
	assert.Equal(t, r1, r2, "row id should be stable across calls for the same environment")
}

func TestResolveEnvironmentClearsOnNewEnvironment(t *testing.T) {
	coord, store := newTestCoordinator(t, Config{})
	_, err := coord.ResolveEnvironment(context.Background(), "env-a", false, true)
	require.NoError(t, err)

	// Leave a leaf row behind under env-a.
	envRowID, err := store.GetRowID(rowstore.HashKey(mustEncode("env-a")), mustEncode("env-a"))
	require.NoError(t, err)
	_, err = store.InsertOrReplace(rowstore.HashKey([]byte("leaf")), []byte("leaf"),
		rowstore.EncodeValue(rowstore.StoredValue{Kind: rowstore.Materialized, Payload: []byte("v")}))
	require.NoError(t, err)

	_, err = coord.ResolveEnvironment(context.Background(), "env-b", false, true)
	require.NoError(t, err)

	_, err = store.GetRowID(rowstore.HashKey(mustEncode("env-a")), mustEncode("env-a"))
	assert.Error(t, err, "expected env-a's row to be cleared after a new environment was observed, had row id %d", envRowID)
}

func TestResolveEnvironmentConnectClearWipesEverything(t *testing.T) {
	coord, store := newTestCoordinator(t, Config{})
	_, err := coord.ResolveEnvironment(context.Background(), "env-a", false, true)
	require.NoError(t, err)
	_, err = store.InsertOrReplace(rowstore.HashKey([]byte("leaf")), []byte("leaf"),
		rowstore.EncodeValue(rowstore.StoredValue{Kind: rowstore.Materialized, Payload: []byte("v")}))
	require.NoError(t, err)
	_, err = coord.ResolveEnvironment(context.Background(), "env-a", true, true)
	require.NoError(t, err)

	_, err = store.GetRowID(rowstore.HashKey([]byte("leaf")), []byte("leaf"))
	assert.Error(t, err, "expected the leaf row to be wiped by the connect-clear call")

	found := false
	_ = store.IterateKeys(func(row rowstore.Row) error {
		found = true
		return nil
	})
	assert.True(t, found, "expected the re-inserted environment row to survive the connect-clear call")
}

func mustEncode(v any) []byte {
	return canon.MustEncode(v)
}
