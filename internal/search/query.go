package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/coderef/memoir/internal/domain"
)

// MemoryEngine runs compiled FTS queries over the memories table. It
// reads from the same database handle the memory repository writes
// through; plain type-filtered and most-recent listings are served by the
// repository's List, not by this engine.
type MemoryEngine struct {
	db *sql.DB
}

// NewMemoryEngine builds a search engine over an already-migrated
// database handle.
func NewMemoryEngine(db *sql.DB) *MemoryEngine {
	return &MemoryEngine{db: db}
}

// Search compiles query and, if anything survives sanitization, runs a
// bm25-ranked match against memories_fts, optionally filtered by type.
// An unsanitizable query returns an empty, non-error result.
func (e *MemoryEngine) Search(ctx context.Context, query string, memType *domain.MemoryType, limit int) ([]domain.MemoryRanked, error) {
	matchExpr, ok := Compile(query)
	if !ok {
		return nil, nil
	}

	sqlQuery := `
		SELECT m.id, m.content, m.type, m.tags, m.source, m.created_at, m.updated_at, m.embedding,
		       bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories m ON memories_fts.rowid = m.rowid
		WHERE memories_fts MATCH ?
	`
	args := []any{matchExpr}
	if memType != nil {
		sqlQuery += " AND m.type = ?"
		args = append(args, string(*memType))
	}
	sqlQuery += " ORDER BY rank ASC LIMIT ?"
	args = append(args, limit)

	rows, err := e.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search: memory query: %w", err)
	}
	defer rows.Close()

	var out []domain.MemoryRanked
	for rows.Next() {
		var (
			m         domain.Memory
			typeStr   string
			sourceStr sql.NullString
			tagsJSON  sql.NullString
			updatedAt sql.NullInt64
			embedding []byte
			rank      float64
		)
		if err := rows.Scan(&m.ID, &m.Content, &typeStr, &tagsJSON, &sourceStr, &m.CreatedAt, &updatedAt, &embedding, &rank); err != nil {
			return nil, fmt.Errorf("search: scan memory row: %w", err)
		}
		m.Type = domain.MemoryType(typeStr)
		m.Source = domain.MemorySource(sourceStr.String)
		m.Embedding = embedding
		if updatedAt.Valid {
			v := updatedAt.Int64
			m.UpdatedAt = &v
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
				return nil, fmt.Errorf("search: decode tags: %w", err)
			}
		}
		out = append(out, domain.MemoryRanked{Memory: m, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: iterate memory rows: %w", err)
	}
	return out, nil
}

// ChunkEngine runs compiled FTS queries over the chunks table.
type ChunkEngine struct {
	db *sql.DB
}

// NewChunkEngine builds a search engine over an already-migrated
// database handle.
func NewChunkEngine(db *sql.DB) *ChunkEngine {
	return &ChunkEngine{db: db}
}

// ChunkSearchFilter narrows a chunk search.
type ChunkSearchFilter struct {
	SessionID *string
	MinDepth  *int
}

// Search compiles query and, if anything survives sanitization, runs a
// bm25-ranked match against chunks_fts, optionally filtered by session and
// minimum depth.
func (e *ChunkEngine) Search(ctx context.Context, query string, filter ChunkSearchFilter, limit int) ([]domain.ChunkRanked, error) {
	matchExpr, ok := Compile(query)
	if !ok {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, c.session_id, c.parent_id, c.depth, c.child_refs, c.content, c.summary, c.status,
		       c.created_at, c.finalized_at, c.compacted_at, c.embedding,
		       bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON chunks_fts.rowid = c.rowid
		WHERE chunks_fts MATCH ?
	`
	args := []any{matchExpr}
	if filter.SessionID != nil {
		sqlQuery += " AND c.session_id = ?"
		args = append(args, *filter.SessionID)
	}
	if filter.MinDepth != nil {
		sqlQuery += " AND c.depth >= ?"
		args = append(args, *filter.MinDepth)
	}
	sqlQuery += " ORDER BY rank ASC LIMIT ?"
	args = append(args, limit)

	rows, err := e.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search: chunk query: %w", err)
	}
	defer rows.Close()

	var out []domain.ChunkRanked
	for rows.Next() {
		c, rank, err := scanRankedChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("search: scan chunk row: %w", err)
		}
		out = append(out, domain.ChunkRanked{Chunk: c, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: iterate chunk rows: %w", err)
	}
	return out, nil
}

func scanRankedChunk(rows *sql.Rows) (domain.Chunk, float64, error) {
	var (
		c                                 domain.Chunk
		statusStr, contentJSON            string
		parentID, summary, childRefsJSON  sql.NullString
		finalizedAt, compactedAt          sql.NullInt64
		embedding                         []byte
		rank                              float64
	)

	err := rows.Scan(&c.ID, &c.SessionID, &parentID, &c.Depth, &childRefsJSON, &contentJSON,
		&summary, &statusStr, &c.CreatedAt, &finalizedAt, &compactedAt, &embedding, &rank)
	if err != nil {
		return domain.Chunk{}, 0, err
	}

	c.Status = domain.ChunkStatus(statusStr)
	c.Embedding = embedding
	if parentID.Valid {
		v := parentID.String
		c.ParentID = &v
	}
	if summary.Valid {
		v := summary.String
		c.Summary = &v
	}
	if finalizedAt.Valid {
		v := finalizedAt.Int64
		c.FinalizedAt = &v
	}
	if compactedAt.Valid {
		v := compactedAt.Int64
		c.CompactedAt = &v
	}
	if err := json.Unmarshal([]byte(contentJSON), &c.Content); err != nil {
		return domain.Chunk{}, 0, fmt.Errorf("decode content: %w", err)
	}
	if childRefsJSON.Valid && childRefsJSON.String != "" {
		if err := json.Unmarshal([]byte(childRefsJSON.String), &c.ChildRefs); err != nil {
			return domain.Chunk{}, 0, fmt.Errorf("decode child refs: %w", err)
		}
	}

	return c, rank, nil
}
