package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/search"
	"github.com/coderef/memoir/internal/storage/sqlite"
)

func TestMemoryEngineRanksByRelevance(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo := sqlite.NewMemoryRepo(store.DB)
	_, err = repo.Create(ctx, domain.MemoryCreate{Content: "The project uses dependency injection for testability", Type: domain.MemoryTypePattern})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.MemoryCreate{Content: "dependency dependency dependency everywhere in this note", Type: domain.MemoryTypeFact})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.MemoryCreate{Content: "unrelated content about something else entirely", Type: domain.MemoryTypeFact})
	require.NoError(t, err)

	engine := search.NewMemoryEngine(store.DB)
	results, err := engine.Search(ctx, "dependency", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "dependency dependency dependency everywhere in this note", results[0].Memory.Content)
	require.LessOrEqual(t, results[0].Rank, results[1].Rank)
}

func TestMemoryEngineUnsanitizableQueryReturnsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := search.NewMemoryEngine(store.DB)
	results, err := engine.Search(ctx, "and or not", nil, 10)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestChunkEngineFiltersBySession(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chunks := sqlite.NewChunkRepo(store.DB)
	summary := "authentication flow uses middleware chains"
	_, err = chunks.Create(ctx, domain.ChunkCreate{SessionID: "S1", Content: domain.ChunkContent{}, Depth: 1, Summary: &summary})
	require.NoError(t, err)
	other := "authentication flow in a different session"
	_, err = chunks.Create(ctx, domain.ChunkCreate{SessionID: "S2", Content: domain.ChunkContent{}, Depth: 1, Summary: &other})
	require.NoError(t, err)

	engine := search.NewChunkEngine(store.DB)
	sid := "S1"
	results, err := engine.Search(ctx, "authentication", search.ChunkSearchFilter{SessionID: &sid}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "S1", results[0].Chunk.SessionID)
}
