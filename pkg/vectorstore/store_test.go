package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// fakeEmbed returns a deterministic low-dimensional embedding so tests
// don't depend on a network embedding provider.
func fakeEmbed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	return v, nil
}

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.VectorStoreConfig{
		PersistPath: filepath.Join(t.TempDir(), "vs"),
		Collection:  "poems",
	}
	s, err := Open(context.Background(), cfg, fakeEmbed)
	require.NoError(t, err)
	return s
}

func TestIngestThenGetPoem(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	chunk := &models.PoemChunk{ID: "c1", Temple: "Mazu", Number: 7, Body: "full poem text", Language: "zh"}
	require.NoError(t, s.Ingest(ctx, chunk))

	chunks, err := s.GetPoem("Mazu", 7)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "full poem text", chunks[0].Body)
}

func TestGetPoemMissingReturnsNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetPoem("Mazu", 99)
	assert.Error(t, err)
}

func TestHasPoem(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ingest(ctx, &models.PoemChunk{ID: "c1", Temple: "Mazu", Number: 7, Body: "text"}))

	assert.True(t, s.HasPoem("Mazu", 7))
	assert.False(t, s.HasPoem("Mazu", 8))
}

func TestSearchFiltersByTempleAndNumber(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ingest(ctx, &models.PoemChunk{ID: "c1", Temple: "Mazu", Number: 7, Body: "analysis one", Language: "zh"}))
	require.NoError(t, s.Ingest(ctx, &models.PoemChunk{ID: "c2", Temple: "Mazu", Number: 7, Body: "analysis two", Language: "zh"}))

	results, err := s.Search(ctx, "Mazu", 7, "love", "zh", 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}
