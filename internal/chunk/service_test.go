package chunk_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coderef/memoir/internal/chunk"
	"github.com/coderef/memoir/internal/config"
	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/search"
	"github.com/coderef/memoir/internal/storage/sqlite"
	"github.com/coderef/memoir/internal/tracker"
)

func newTestService(t *testing.T) (*chunk.Service, *tracker.Tracker) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo := sqlite.NewChunkRepo(store.DB)
	tree := sqlite.NewTreeEngine(store.DB, repo)
	tr := tracker.New()
	searcher := search.NewChunkEngine(store.DB)
	svc := chunk.New(repo, tree, tr, searcher, config.Default().Memory)
	return svc, tr
}

func TestFinalizePipeline(t *testing.T) {
	ctx := context.Background()
	svc, tr := newTestService(t)
	session := uuid.New().String()

	tr.EnsureMessage(session, "m1", domain.RoleUser)
	tr.AddPart(session, "m1", "m1:0", domain.Part{Type: domain.PartText, Text: "Hello"}, domain.RoleUser)

	tr.EnsureMessage(session, "m2", domain.RoleAssistant)
	tr.AddPart(session, "m2", "m2:0", domain.Part{Type: domain.PartTool, Tool: "bash"}, domain.RoleAssistant)
	tr.AddPart(session, "m2", "m2:1", domain.Part{Type: domain.PartFile, Text: "src/x.ts"}, domain.RoleAssistant)

	result, ok, err := svc.Finalize(ctx, session)
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, result.Content.Messages, 2)
	require.Equal(t, "m1", result.Content.Messages[0].ID)
	require.Equal(t, "m2", result.Content.Messages[1].ID)
	require.Equal(t, []string{"bash"}, result.Content.Metadata.ToolsUsed)
	require.Equal(t, []string{"src/x.ts"}, result.Content.Metadata.FilesModified)
	require.NotNil(t, result.FinalizedAt)

	require.False(t, tr.HasMessages(session))
	currentID := tr.GetCurrentChunkID(session)
	require.NotNil(t, currentID)
	require.Equal(t, result.ID, *currentID)
}

func TestFinalizeNoMessagesIsNotOK(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, ok, err := svc.Finalize(ctx, uuid.New().String())
	require.NoError(t, err)
	require.False(t, ok)
}
