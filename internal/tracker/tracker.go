// Package tracker holds the in-process, unpersisted per-session message
// buffers that accumulate streamed chat turns between finalizations.
package tracker

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/coderef/memoir/internal/domain"
)

// Tracker buffers messages and parts per session, keyed by session id.
// Nothing here survives a process restart; it is a staging area for
// content that will eventually be finalized into a persisted chunk.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	group    singleflight.Group
}

type sessionState struct {
	messages  []*domain.ChunkMessage
	index     map[string]int            // message id -> index in messages
	partIndex map[string]map[string]int // message id -> (part id -> index in that message's Parts)
	currentID *string
}

// New builds an empty tracker.
func New() *Tracker {
	return &Tracker{sessions: make(map[string]*sessionState)}
}

func (t *Tracker) state(session string) *sessionState {
	s, ok := t.sessions[session]
	if !ok {
		s = &sessionState{index: make(map[string]int), partIndex: make(map[string]map[string]int)}
		t.sessions[session] = s
	}
	return s
}

// TrackMessage upserts msg by id: replacing an existing entry in place if
// present, else appending. This absorbs streaming re-emissions that only
// grow content without disturbing message order.
func (t *Tracker) TrackMessage(session string, msg domain.ChunkMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(session)
	if i, ok := s.index[msg.ID]; ok {
		s.messages[i] = &msg
		return
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, &msg)
}

// EnsureMessage creates an empty-parts shell for id if absent. If present
// with a different role, the role is corrected in place: parts can
// arrive before the message-metadata event names the role.
func (t *Tracker) EnsureMessage(session, id string, role domain.MessageRole) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(session)
	if i, ok := s.index[id]; ok {
		if s.messages[i].Role != role {
			s.messages[i].Role = role
		}
		return
	}
	s.index[id] = len(s.messages)
	s.messages = append(s.messages, &domain.ChunkMessage{ID: id, Role: role, Parts: nil})
}

// AddPart upserts part by its part id within message id's part list,
// creating the message with defaultRole if it doesn't exist yet. Parts
// are never deduplicated across messages.
func (t *Tracker) AddPart(session, messageID, partID string, part domain.Part, defaultRole domain.MessageRole) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(session)
	i, ok := s.index[messageID]
	if !ok {
		i = len(s.messages)
		s.index[messageID] = i
		s.messages = append(s.messages, &domain.ChunkMessage{ID: messageID, Role: defaultRole})
	}

	parts, ok := s.partIndex[messageID]
	if !ok {
		parts = make(map[string]int)
		s.partIndex[messageID] = parts
	}

	msg := s.messages[i]
	if j, ok := parts[partID]; ok {
		msg.Parts[j] = part
		return
	}
	parts[partID] = len(msg.Parts)
	msg.Parts = append(msg.Parts, part)
}

// GetMessages returns the session's tracked messages in first-insert
// order (stable across upserts).
func (t *Tracker) GetMessages(session string) []domain.ChunkMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[session]
	if !ok {
		return nil
	}
	out := make([]domain.ChunkMessage, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}

// MessageCount reports how many messages are tracked for session.
func (t *Tracker) MessageCount(session string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[session]
	if !ok {
		return 0
	}
	return len(s.messages)
}

// HasMessages reports whether session has any tracked messages.
func (t *Tracker) HasMessages(session string) bool {
	return t.MessageCount(session) > 0
}

// ClearSession drops all tracked messages and the current chunk id for
// session.
func (t *Tracker) ClearSession(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, session)
}

// GetCurrentChunkID returns the session's active chunk id, if any.
func (t *Tracker) GetCurrentChunkID(session string) *string {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[session]
	if !ok {
		return nil
	}
	return s.currentID
}

// SetCurrentChunkID records session's active chunk id.
func (t *Tracker) SetCurrentChunkID(session, chunkID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(session).currentID = &chunkID
}

// Finalize runs fn, a finalize-or-clear operation, with at most one such
// operation in flight per session at a time. Concurrent callers on the
// same session id block on the first caller's result rather than
// interleaving reads and mutations of that session's buffer.
func (t *Tracker) Finalize(session string, fn func() (any, error)) (any, error) {
	v, err, _ := t.group.Do(session, fn)
	return v, err
}
