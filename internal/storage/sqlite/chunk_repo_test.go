package sqlite

import (
	"context"
	"testing"

	"github.com/coderef/memoir/internal/domain"
)

func TestChunkRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)

	created, err := repo.Create(ctx, domain.ChunkCreate{
		SessionID: "S1",
		Content:   domain.ChunkContent{Messages: []domain.ChunkMessage{{ID: "m1", Role: domain.RoleUser}}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.ChunkStatusActive {
		t.Fatalf("expected active status, got %s", created.Status)
	}

	got, ok, err := repo.GetByID(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("get: err=%v ok=%v", err, ok)
	}
	if len(got.Content.Messages) != 1 || got.Content.Messages[0].ID != "m1" {
		t.Fatalf("content round trip mismatch: %+v", got.Content)
	}
}

func TestChunkRepoGetBySessionOrdering(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)

	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S1", Content: domain.ChunkContent{}}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S2", Content: domain.ChunkContent{}}); err != nil {
		t.Fatalf("create other session: %v", err)
	}

	chunks, err := repo.GetBySession(ctx, "S1", domain.ChunkSessionFilter{})
	if err != nil {
		t.Fatalf("get by session: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for S1, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].CreatedAt < chunks[i-1].CreatedAt {
			t.Fatalf("expected created_at ascending, got %d before %d", chunks[i-1].CreatedAt, chunks[i].CreatedAt)
		}
	}
}

func TestChunkRepoRecentSummaries(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	repo := NewChunkRepo(store.DB)

	leaf, err := repo.Create(ctx, domain.ChunkCreate{SessionID: "S1", Content: domain.ChunkContent{}})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}

	summary := "summary text"
	_, err = repo.Create(ctx, domain.ChunkCreate{
		SessionID: "S1",
		Content:   domain.ChunkContent{},
		Depth:     1,
		Summary:   &summary,
	})
	if err != nil {
		t.Fatalf("create summary: %v", err)
	}

	summaries, err := repo.RecentSummaries(ctx, 5)
	if err != nil {
		t.Fatalf("recent summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary chunk (leaf excluded), got %d", len(summaries))
	}
	if summaries[0].ID == leaf.ID {
		t.Fatal("leaf chunk should not appear in recent summaries")
	}
}
