package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemBackend_UpsertAndSearch(t *testing.T) {
	backend, err := NewChromemBackend("")
	require.NoError(t, err)
	assert.Equal(t, "chromem", backend.Name())

	ctx := context.Background()
	require.NoError(t, backend.Upsert(ctx, "alice_corrections", "c1", []float32{1, 0, 0}, "first correction", map[string]string{"topic": "ai"}))
	require.NoError(t, backend.Upsert(ctx, "alice_corrections", "c2", []float32{0, 1, 0}, "second correction", map[string]string{"topic": "climate"}))

	results, err := backend.Search(ctx, "alice_corrections", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ID)
}

func TestChromemBackend_SearchOnEmptyCollectionReturnsNoResults(t *testing.T) {
	backend, err := NewChromemBackend("")
	require.NoError(t, err)

	results, err := backend.Search(context.Background(), "bob_conversations", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemBackend_DeleteAndDeleteCollectionAreIdempotent(t *testing.T) {
	backend, err := NewChromemBackend("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Upsert(ctx, "alice_corrections", "c1", []float32{1, 0}, "content", nil))
	require.NoError(t, backend.Delete(ctx, "alice_corrections", "c1"))

	require.NoError(t, backend.DeleteCollection(ctx, "alice_corrections"))
	require.NoError(t, backend.DeleteCollection(ctx, "never_created"))
}
