// Package chunk implements the chunk service (C11): the façade over the
// chunk repository, tree engine, and message tracker that the adapters
// call for session lifecycle events.
package chunk

import (
	"context"
	"fmt"
	"sort"

	"github.com/coderef/memoir/internal/config"
	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/search"
)

// Repo is the persistence contract the service depends on, satisfied by
// *sqlite.ChunkRepo.
type Repo interface {
	Create(ctx context.Context, in domain.ChunkCreate) (domain.Chunk, error)
	GetByID(ctx context.Context, id string) (domain.Chunk, bool, error)
	Update(ctx context.Context, id string, in domain.ChunkUpdate) (domain.Chunk, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetBySession(ctx context.Context, sessionID string, filter domain.ChunkSessionFilter) ([]domain.Chunk, error)
	GetActive(ctx context.Context, sessionID string) ([]domain.Chunk, error)
	RecentSummaries(ctx context.Context, limit int) ([]domain.Chunk, error)
	Count(ctx context.Context, sessionID *string) (int, error)
}

// Tree is the traversal and compaction contract, satisfied by
// *sqlite.TreeEngine.
type Tree interface {
	Descendants(ctx context.Context, id string) ([]domain.TreeNode, error)
	Compact(ctx context.Context, sessionID string, chunkIDs []string, summary string) (domain.CompactResult, error)
}

// Tracker is the session message-buffer contract, satisfied by
// *tracker.Tracker.
type Tracker interface {
	GetMessages(session string) []domain.ChunkMessage
	HasMessages(session string) bool
	ClearSession(session string)
	SetCurrentChunkID(session, chunkID string)
	Finalize(session string, fn func() (any, error)) (any, error)
}

// Searcher is the ranked chunk-query contract, satisfied by
// *search.ChunkEngine.
type Searcher interface {
	Search(ctx context.Context, query string, filter search.ChunkSearchFilter, limit int) ([]domain.ChunkRanked, error)
}

// Service is the chunk service façade.
type Service struct {
	repo     Repo
	tree     Tree
	tracker  Tracker
	searcher Searcher
	settings config.MemorySettings
}

// New builds a chunk service over its dependencies and the memory
// settings that supply the default search limit.
func New(repo Repo, tree Tree, tracker Tracker, searcher Searcher, settings config.MemorySettings) *Service {
	return &Service{repo: repo, tree: tree, tracker: tracker, searcher: searcher, settings: settings}
}

// Create is a thin wrapper over the repository.
func (s *Service) Create(ctx context.Context, session string, content domain.ChunkContent) (domain.Chunk, error) {
	return s.repo.Create(ctx, domain.ChunkCreate{SessionID: session, Content: content})
}

// finalizeResult is the value Finalize's singleflight-guarded closure
// returns; v.(finalizeResult) is the only call site.
type finalizeResult struct {
	chunk domain.Chunk
	ok    bool
}

// Finalize drains the tracker's message buffer for session into a newly
// persisted chunk, deriving tool/file metadata from the message parts.
// Returns ok=false if the session has no tracked messages. The whole
// read-create-clear sequence runs inside the tracker's per-session
// singleflight guard, so a concurrent Finalize or DeleteSession on the
// same session blocks on this one instead of racing its buffer.
func (s *Service) Finalize(ctx context.Context, session string) (domain.Chunk, bool, error) {
	v, err := s.tracker.Finalize(session, func() (any, error) {
		messages := s.tracker.GetMessages(session)
		if len(messages) == 0 {
			return finalizeResult{}, nil
		}

		metadata := deriveMetadata(messages)

		created, err := s.repo.Create(ctx, domain.ChunkCreate{
			SessionID: session,
			Content:   domain.ChunkContent{Messages: messages, Metadata: metadata},
		})
		if err != nil {
			return nil, fmt.Errorf("chunk service: finalize: create: %w", err)
		}

		now := nowUnix()
		updated, ok, err := s.repo.Update(ctx, created.ID, domain.ChunkUpdate{FinalizedAt: &now})
		if err != nil {
			return nil, fmt.Errorf("chunk service: finalize: stamp finalized_at: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("chunk service: finalize: chunk %q vanished", created.ID)
		}

		s.tracker.ClearSession(session)
		s.tracker.SetCurrentChunkID(session, updated.ID)

		return finalizeResult{chunk: updated, ok: true}, nil
	})
	if err != nil {
		return domain.Chunk{}, false, err
	}
	r := v.(finalizeResult)
	return r.chunk, r.ok, nil
}

// deriveMetadata unions tool names used and file-part texts touched
// across every message's parts, omitting a field entirely when it would
// be empty.
func deriveMetadata(messages []domain.ChunkMessage) domain.ChunkMetadata {
	toolSeen := map[string]bool{}
	fileSeen := map[string]bool{}
	var tools, files []string

	for _, msg := range messages {
		for _, p := range msg.Parts {
			switch p.Type {
			case domain.PartTool:
				if p.Tool != "" && !toolSeen[p.Tool] {
					toolSeen[p.Tool] = true
					tools = append(tools, p.Tool)
				}
			case domain.PartFile:
				if p.Text != "" && !fileSeen[p.Text] {
					fileSeen[p.Text] = true
					files = append(files, p.Text)
				}
			}
		}
	}

	sort.Strings(tools)
	sort.Strings(files)

	return domain.ChunkMetadata{ToolsUsed: tools, FilesModified: files}
}

// Compact collects session's active chunks in chronological order and
// folds them under a new summary via the tree engine. Returns ok=false if
// the session has no active chunks.
func (s *Service) Compact(ctx context.Context, session, summary string) (domain.CompactResult, bool, error) {
	active, err := s.repo.GetActive(ctx, session)
	if err != nil {
		return domain.CompactResult{}, false, fmt.Errorf("chunk service: compact: load active: %w", err)
	}
	if len(active) == 0 {
		return domain.CompactResult{}, false, nil
	}

	ids := make([]string, len(active))
	for i, c := range active {
		ids[i] = c.ID
	}

	result, err := s.tree.Compact(ctx, session, ids, summary)
	if err != nil {
		return domain.CompactResult{}, false, err
	}
	return result, true, nil
}

// Expand returns a single chunk, or that chunk plus its descendants
// (level stripped) when includeChildren is set.
func (s *Service) Expand(ctx context.Context, id string, includeChildren bool) ([]domain.Chunk, bool, error) {
	c, ok, err := s.repo.GetByID(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	if !includeChildren {
		return []domain.Chunk{c}, true, nil
	}

	nodes, err := s.tree.Descendants(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("chunk service: expand: descendants: %w", err)
	}
	out := make([]domain.Chunk, len(nodes))
	for i, n := range nodes {
		out[i] = n.Chunk
	}
	return out, true, nil
}

// SearchFilter narrows Search.
type SearchFilter struct {
	Session  *string
	MinDepth *int
	Limit    int
}

// Search runs C7's compiler via the search engine, defaulting limit to
// the configured max_search_results.
func (s *Service) Search(ctx context.Context, query string, filter SearchFilter) ([]domain.ChunkRanked, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = s.settings.MaxSearchResults
	}
	return s.searcher.Search(ctx, query, search.ChunkSearchFilter{
		SessionID: filter.Session,
		MinDepth:  filter.MinDepth,
	}, limit)
}

// Get is a repository pass-through.
func (s *Service) Get(ctx context.Context, id string) (domain.Chunk, bool, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete is a repository pass-through.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// DeleteSession removes every chunk belonging to session and clears the
// tracker's state for it, returning the count deleted. The delete-then-
// clear sequence runs inside the tracker's per-session singleflight
// guard alongside Finalize, so the two never interleave on one session.
func (s *Service) DeleteSession(ctx context.Context, session string) (int, error) {
	v, err := s.tracker.Finalize(session, func() (any, error) {
		chunks, err := s.repo.GetBySession(ctx, session, domain.ChunkSessionFilter{})
		if err != nil {
			return nil, fmt.Errorf("chunk service: delete session: list: %w", err)
		}

		deleted := 0
		for _, c := range chunks {
			ok, err := s.repo.Delete(ctx, c.ID)
			if err != nil {
				return nil, fmt.Errorf("chunk service: delete session: delete %q: %w", c.ID, err)
			}
			if ok {
				deleted++
			}
		}

		s.tracker.ClearSession(session)
		return deleted, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// RecentSummaryChunks is a repository pass-through.
func (s *Service) RecentSummaryChunks(ctx context.Context, limit int) ([]domain.Chunk, error) {
	return s.repo.RecentSummaries(ctx, limit)
}

// Count is a repository pass-through.
func (s *Service) Count(ctx context.Context, sessionID *string) (int, error) {
	return s.repo.Count(ctx, sessionID)
}
