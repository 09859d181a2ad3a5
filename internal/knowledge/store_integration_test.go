package knowledge_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgrag/pgrag/internal/knowledge"
	"github.com/pgrag/pgrag/internal/log"
	"github.com/pgrag/pgrag/internal/ollama"
	"github.com/pgrag/pgrag/internal/testutil"
)

// schemaDimension matches the vector column in db/migrations.
const schemaDimension = 4096

func setupIntegrationStore(t *testing.T) (*knowledge.Store, *testutil.TestDB, *testutil.FakeProvider) {
	t.Helper()

	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	provider := testutil.NewFakeProvider(t, schemaDimension)
	client := ollama.New(ollama.Config{Host: provider.URL()}, log.NewNop())

	embedder := knowledge.EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return client.Embed(ctx, "mistral", text)
	})

	store := knowledge.New(knowledge.NewPG(tdb.Pool, log.NewNop()), embedder, log.NewNop())
	return store, tdb, provider
}

func TestStore_AddAndGet_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, _ := setupIntegrationStore(t)
	ctx := context.Background()

	doc, err := store.Add(ctx, "Paris is the capital of France.", map[string]any{
		"source": "test",
		"rank":   float64(1),
	})
	require.NoError(t, err)
	require.NotZero(t, doc.ID)
	require.False(t, doc.CreatedAt.IsZero())

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", got.Content)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.Equal(t, float64(1), got.Metadata["rank"])
}

func TestStore_Get_NotFound_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, _ := setupIntegrationStore(t)

	_, err := store.Get(context.Background(), 424242)
	require.ErrorIs(t, err, knowledge.ErrNotFound)
}

func TestStore_SearchFindsInsertedDocument_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, _ := setupIntegrationStore(t)
	ctx := context.Background()

	doc, err := store.Add(ctx, "Paris is the capital of France.", nil)
	require.NoError(t, err)
	_, err = store.Add(ctx, "The moon orbits the earth.", nil)
	require.NoError(t, err)

	// Identical text embeds to the identical vector, so the matching
	// document must rank first with the maximum score.
	results, err := store.Search(ctx, "Paris is the capital of France.")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, doc.ID, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStore_SearchDeterminism_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, _ := setupIntegrationStore(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := store.Add(ctx, fmt.Sprintf("document number %d", i), nil)
		require.NoError(t, err)
	}

	first, err := store.Search(ctx, "document")
	require.NoError(t, err)

	for range 3 {
		again, err := store.Search(ctx, "document")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestStore_SearchTopKBound_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, _ := setupIntegrationStore(t)
	ctx := context.Background()

	const stored = 7
	for i := range stored {
		_, err := store.Add(ctx, fmt.Sprintf("fact %d", i), nil)
		require.NoError(t, err)
	}

	results, err := store.Search(ctx, "fact", knowledge.WithTopK(3))
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Fewer stored than requested: all of them come back.
	results, err = store.Search(ctx, "fact", knowledge.WithTopK(50))
	require.NoError(t, err)
	assert.Len(t, results, stored)
}

func TestStore_SearchEmptyStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, _ := setupIntegrationStore(t)

	results, err := store.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_EmbedFailureLeavesStoreUnchanged_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, _, provider := setupIntegrationStore(t)
	ctx := context.Background()

	provider.FailEmbed(500)

	_, err := store.Add(ctx, "this must not be stored", nil)
	require.Error(t, err)

	provider.FailEmbed(0)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
