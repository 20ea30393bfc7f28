package tracker

import (
	"testing"

	"github.com/coderef/memoir/internal/domain"
)

func TestTrackMessageUpsertPreservesPosition(t *testing.T) {
	tr := New()

	tr.TrackMessage("S", domain.ChunkMessage{ID: "m1", Role: domain.RoleUser})
	tr.TrackMessage("S", domain.ChunkMessage{ID: "m2", Role: domain.RoleAssistant})
	tr.TrackMessage("S", domain.ChunkMessage{ID: "m1", Role: domain.RoleUser, Parts: []domain.Part{{Type: domain.PartText, Text: "hi"}}})

	got := tr.GetMessages("S")
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("expected order [m1 m2], got [%s %s]", got[0].ID, got[1].ID)
	}
	if len(got[0].Parts) != 1 {
		t.Fatalf("expected upsert to replace m1 in place with its new parts, got %+v", got[0])
	}
}

func TestEnsureMessageCorrectsRole(t *testing.T) {
	tr := New()

	tr.EnsureMessage("S", "m1", domain.RoleUser)
	tr.EnsureMessage("S", "m1", domain.RoleAssistant)

	got := tr.GetMessages("S")
	if len(got) != 1 || got[0].Role != domain.RoleAssistant {
		t.Fatalf("expected role corrected to assistant, got %+v", got)
	}
}

func TestAddPartUpsertsWithinMessage(t *testing.T) {
	tr := New()

	tr.AddPart("S", "m1", "p1", domain.Part{Type: domain.PartText, Text: "first"}, domain.RoleAssistant)
	tr.AddPart("S", "m1", "p2", domain.Part{Type: domain.PartTool, Tool: "bash"}, domain.RoleAssistant)
	tr.AddPart("S", "m1", "p1", domain.Part{Type: domain.PartText, Text: "first revised"}, domain.RoleAssistant)

	got := tr.GetMessages("S")
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	parts := got[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Text != "first revised" {
		t.Errorf("expected p1 replaced in place, got %q", parts[0].Text)
	}
	if parts[1].Tool != "bash" {
		t.Errorf("expected p2 untouched, got %+v", parts[1])
	}
}

func TestClearSessionResetsState(t *testing.T) {
	tr := New()
	tr.TrackMessage("S", domain.ChunkMessage{ID: "m1", Role: domain.RoleUser})
	tr.SetCurrentChunkID("S", "ch_x")

	if !tr.HasMessages("S") {
		t.Fatal("expected HasMessages true before clear")
	}

	tr.ClearSession("S")

	if tr.HasMessages("S") {
		t.Error("expected HasMessages false after clear")
	}
	if tr.GetCurrentChunkID("S") != nil {
		t.Error("expected current chunk id cleared")
	}
}

func TestMessageCountAndHasMessages(t *testing.T) {
	tr := New()
	if tr.HasMessages("S") {
		t.Fatal("expected no messages initially")
	}
	tr.TrackMessage("S", domain.ChunkMessage{ID: "m1", Role: domain.RoleUser})
	if tr.MessageCount("S") != 1 {
		t.Errorf("expected count 1, got %d", tr.MessageCount("S"))
	}
}
