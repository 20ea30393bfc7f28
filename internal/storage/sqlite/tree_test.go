package sqlite

import (
	"context"
	"testing"

	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/memoirerr"
)

func TestCompactAtomicity(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)
	tree := NewTreeEngine(store.DB, repo)

	a, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}, Depth: 0})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}, Depth: 1})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	c, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}, Depth: 2})
	if err != nil {
		t.Fatalf("create c: %v", err)
	}

	result, err := tree.Compact(ctx, "S", []string{a.ID, b.ID, c.ID}, "summary")
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if result.Summary.Depth != 3 {
		t.Errorf("expected summary depth 3, got %d", result.Summary.Depth)
	}
	if result.Summary.Status != domain.ChunkStatusActive {
		t.Errorf("expected summary status active, got %s", result.Summary.Status)
	}
	if len(result.Summary.ChildRefs) != 3 || result.Summary.ChildRefs[0] != a.ID {
		t.Errorf("expected child_refs in argument order, got %v", result.Summary.ChildRefs)
	}

	for _, child := range result.Children {
		if child.Status != domain.ChunkStatusCompacted {
			t.Errorf("expected child %s compacted, got %s", child.ID, child.Status)
		}
		if child.ParentID == nil || *child.ParentID != result.Summary.ID {
			t.Errorf("expected child %s parent to be summary", child.ID)
		}
		if child.CompactedAt == nil {
			t.Errorf("expected child %s compacted_at set", child.ID)
		}
	}
}

func TestCompactFailsAtomicallyOnMissingID(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)
	tree := NewTreeEngine(store.DB, repo)

	a, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}

	_, err = tree.Compact(ctx, "S", []string{a.ID, "ch_missing00001"}, "summary")
	if err == nil {
		t.Fatal("expected compact to fail on missing id")
	}
	if _, ok := memoirerr.AsMissingChunks(err); !ok {
		t.Fatalf("expected MissingChunksError, got %v", err)
	}

	got, ok, err := repo.GetByID(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("get a after failed compact: err=%v ok=%v", err, ok)
	}
	if got.Status != domain.ChunkStatusActive {
		t.Errorf("expected a to remain active after failed compact, got %s", got.Status)
	}
}

func TestCompactEmptyListFails(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)
	tree := NewTreeEngine(store.DB, repo)

	_, err := tree.Compact(ctx, "S", nil, "summary")
	if err != memoirerr.ErrEmptyChunkList {
		t.Fatalf("expected ErrEmptyChunkList, got %v", err)
	}
}

func TestAncestorsRootFirst(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)

	root, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	mid, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}, ParentID: &root.ID, Depth: 1})
	if err != nil {
		t.Fatalf("create mid: %v", err)
	}
	leaf, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S", Content: domain.ChunkContent{}, ParentID: &mid.ID, Depth: 2})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}

	tree := NewTreeEngine(store.DB, repo)
	nodes, err := tree.Ancestors(ctx, leaf.ID)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if nodes[0].Chunk.ID != root.ID || nodes[len(nodes)-1].Chunk.ID != leaf.ID {
		t.Fatalf("expected root-first order, got %v", idsOf(nodes))
	}
}

func TestAncestorsMissingStartYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)
	tree := NewTreeEngine(store.DB, repo)

	nodes, err := tree.Ancestors(ctx, "ch_doesnotexist")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected empty sequence, got %d nodes", len(nodes))
	}
}

func idsOf(nodes []domain.TreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Chunk.ID
	}
	return out
}
