// Package adapter is the boundary (C12) between the host's hook and tool
// surface and the memory/chunk service façades. Adapters translate host
// events into service calls and format tool output; they hold no
// persistence logic of their own.
package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/coderef/memoir/internal/chunk"
	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/memory"
)

// Adapter exposes the tool-facing operations a host binds to its own
// command/tool surface: add/search/list/forget over memories, and
// expand/history over chunks.
type Adapter struct {
	memory  *memory.Service
	chunk   *chunk.Service
	tracker Tracker
}

// Tracker is the subset of the message tracker the chat-message and
// session-compacting hooks drive.
type Tracker interface {
	TrackMessage(session string, msg domain.ChunkMessage)
	EnsureMessage(session, id string, role domain.MessageRole)
	AddPart(session, messageID, partID string, part domain.Part, defaultRole domain.MessageRole)
	HasMessages(session string) bool
}

// New builds an adapter over the memory service, chunk service, and the
// tracker the chunk service itself was wired against.
func New(mem *memory.Service, ch *chunk.Service, tr Tracker) *Adapter {
	return &Adapter{memory: mem, chunk: ch, tracker: tr}
}

// OnChatMessage is the host's chat-message hook entry point: it tracks
// the message, records its parts, and, when keyword detection fires on
// the message text, reports that a memory prompt should surface. The
// host decides what to do with that signal; the adapter never writes a
// memory on the caller's behalf.
func (a *Adapter) OnChatMessage(session string, msg domain.ChunkMessage) (keywordTriggered bool) {
	a.tracker.EnsureMessage(session, msg.ID, msg.Role)
	for i, part := range msg.Parts {
		partID := fmt.Sprintf("%s:%d", msg.ID, i)
		a.tracker.AddPart(session, msg.ID, partID, part, msg.Role)
	}
	a.tracker.TrackMessage(session, msg)

	if msg.Role != domain.RoleUser {
		return false
	}
	return a.memory.DetectKeyword(textOf(msg))
}

func textOf(msg domain.ChunkMessage) string {
	var b strings.Builder
	for _, p := range msg.Parts {
		if p.Type == domain.PartText {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// OnSessionCompacting is the host's session-compacting hook entry point:
// finalize whatever is buffered, then fold the session's active chunks
// into a summary. Returns ok=false if there was nothing to compact.
func (a *Adapter) OnSessionCompacting(ctx context.Context, session, summary string) (domain.CompactResult, bool, error) {
	if a.tracker.HasMessages(session) {
		if _, _, err := a.chunk.Finalize(ctx, session); err != nil {
			return domain.CompactResult{}, false, fmt.Errorf("adapter: session compacting: finalize: %w", err)
		}
	}
	return a.chunk.Compact(ctx, session, summary)
}

// AddMemory is the "add" tool operation.
func (a *Adapter) AddMemory(ctx context.Context, content string, memType domain.MemoryType, tags []string) (domain.Memory, error) {
	return a.memory.Add(ctx, content, memType, tags, domain.MemorySourceUser)
}

// SearchMemories is the "search" tool operation over memories.
func (a *Adapter) SearchMemories(ctx context.Context, query string, memType *domain.MemoryType, limit int) ([]domain.MemoryRanked, error) {
	return a.memory.Search(ctx, query, memType, limit)
}

// ListMemories is the "list" tool operation over memories.
func (a *Adapter) ListMemories(ctx context.Context, filter domain.MemoryListFilter) ([]domain.Memory, error) {
	return a.memory.List(ctx, filter)
}

// ForgetMemory is the "forget" tool operation.
func (a *Adapter) ForgetMemory(ctx context.Context, id string) (bool, error) {
	return a.memory.Forget(ctx, id)
}

// ExpandChunk is the "expand" tool operation.
func (a *Adapter) ExpandChunk(ctx context.Context, id string, includeChildren bool) ([]domain.Chunk, bool, error) {
	return a.chunk.Expand(ctx, id, includeChildren)
}

// History is the "history" tool operation: a ranked chunk search,
// optionally scoped to one session.
func (a *Adapter) History(ctx context.Context, query string, session *string) ([]domain.ChunkRanked, error) {
	return a.chunk.Search(ctx, query, chunk.SearchFilter{Session: session})
}
