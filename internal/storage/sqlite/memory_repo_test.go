package sqlite

import (
	"context"
	"testing"

	"github.com/coderef/memoir/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMemoryRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewMemoryRepo(store.DB)

	created, err := repo.Create(ctx, memoryCreate("Use Result<T, E> for error handling", "pattern", []string{"rust", "errors"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a minted id")
	}

	got, ok, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected row to exist")
	}
	if got.Content != created.Content || len(got.Tags) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	newContent := "Updated content"
	updated, ok, err := repo.Update(ctx, created.ID, updateFor(newContent))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok || updated.Content != newContent {
		t.Fatalf("expected update applied, got %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("expected updated_at to be stamped")
	}

	deleted, err := repo.Delete(ctx, created.ID)
	if err != nil || !deleted {
		t.Fatalf("expected delete to succeed, err=%v deleted=%v", err, deleted)
	}

	_, ok, err = repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatal("expected row gone after delete")
	}
}

func TestMemoryRepoUpdateIsNoOpWhenEmpty(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewMemoryRepo(store.DB)

	created, err := repo.Create(ctx, memoryCreate("fact content", "fact", nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	unchanged, ok, err := repo.Update(ctx, created.ID, emptyUpdate())
	if err != nil || !ok {
		t.Fatalf("update: err=%v ok=%v", err, ok)
	}
	if unchanged.UpdatedAt != nil {
		t.Errorf("expected updated_at to remain nil on a zero update, got %v", unchanged.UpdatedAt)
	}
}

func TestMemoryRepoGetMissingNotAnError(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewMemoryRepo(store.DB)

	_, ok, err := repo.GetByID(ctx, "mem_doesnotexist")
	if err != nil {
		t.Fatalf("expected nil error for missing row, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing row")
	}
}

func TestMemoryRepoCountByType(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewMemoryRepo(store.DB)

	if _, err := repo.Create(ctx, memoryCreate("a", "fact", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, memoryCreate("b", "gotcha", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	total, err := repo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total count 2, got %d", total)
	}

	factType := domain.MemoryTypeFact
	facts, err := repo.Count(ctx, &factType)
	if err != nil {
		t.Fatalf("count facts: %v", err)
	}
	if facts != 1 {
		t.Errorf("expected fact count 1, got %d", facts)
	}
}
