package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/ids"
)

// ChunkRepo is the persistence layer for chunks: CRUD, session/parent
// queries, and the recent-summaries query used for context hydration.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo builds a repository over an already-migrated database
// handle.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Create mints an id and inserts a new active chunk row.
func (r *ChunkRepo) Create(ctx context.Context, in domain.ChunkCreate) (domain.Chunk, error) {
	return r.createWith(ctx, r.db, in)
}

// createWith takes an execer so the insert can run against either the
// handle or a transaction. Create is its only caller; the tree engine
// writes its summary row with its own INSERT.
func (r *ChunkRepo) createWith(ctx context.Context, exec execer, in domain.ChunkCreate) (domain.Chunk, error) {
	id, err := ids.NewChunkID()
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunk repo: mint id: %w", err)
	}

	contentJSON, err := json.Marshal(in.Content)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunk repo: encode content: %w", err)
	}

	created := nowUnix()

	_, err = exec.ExecContext(ctx, `
		INSERT INTO chunks (id, session_id, parent_id, depth, child_refs, content, summary, status, created_at)
		VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?)
	`, id, in.SessionID, in.ParentID, in.Depth, string(contentJSON), in.Summary, string(domain.ChunkStatusActive), created)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunk repo: insert: %w", err)
	}

	return domain.Chunk{
		ID:        id,
		SessionID: in.SessionID,
		ParentID:  in.ParentID,
		Depth:     in.Depth,
		Content:   in.Content,
		Summary:   in.Summary,
		Status:    domain.ChunkStatusActive,
		CreatedAt: created,
	}, nil
}

// execer is the subset of *sql.DB / *sql.Tx that repo helpers need, so the
// tree engine can reuse the lookup logic (getByIDWith) inside its own
// transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetByID returns the chunk, or ok=false if no row matches.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (domain.Chunk, bool, error) {
	return r.getByIDWith(ctx, r.db, id)
}

func (r *ChunkRepo) getByIDWith(ctx context.Context, exec execer, id string) (domain.Chunk, bool, error) {
	row := exec.QueryRowContext(ctx, chunkSelectColumns+" FROM chunks WHERE id = ?", id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return domain.Chunk{}, false, nil
	}
	if err != nil {
		return domain.Chunk{}, false, fmt.Errorf("chunk repo: get %q: %w", id, err)
	}
	return c, true, nil
}

const chunkSelectColumns = `
	SELECT id, session_id, parent_id, depth, child_refs, content, summary, status,
	       created_at, finalized_at, compacted_at, embedding
`

// Update applies only the provided fields. Returns ok=false if the row
// doesn't exist. A zero update returns the existing row untouched.
func (r *ChunkRepo) Update(ctx context.Context, id string, in domain.ChunkUpdate) (domain.Chunk, bool, error) {
	return r.updateWith(ctx, r.db, id, in)
}

func (r *ChunkRepo) updateWith(ctx context.Context, exec execer, id string, in domain.ChunkUpdate) (domain.Chunk, bool, error) {
	existing, ok, err := r.getByIDWith(ctx, exec, id)
	if err != nil || !ok {
		return domain.Chunk{}, ok, err
	}

	if in.IsZero() {
		return existing, true, nil
	}

	var b updateBuilder
	if in.Content != nil {
		contentJSON, err := json.Marshal(*in.Content)
		if err != nil {
			return domain.Chunk{}, false, fmt.Errorf("chunk repo: encode content: %w", err)
		}
		b.set("content", string(contentJSON))
	}
	if in.Summary != nil {
		b.set("summary", *in.Summary)
	}
	if in.Status != nil {
		b.set("status", string(*in.Status))
	}
	if in.ChildRefs != nil {
		refsJSON, err := json.Marshal(*in.ChildRefs)
		if err != nil {
			return domain.Chunk{}, false, fmt.Errorf("chunk repo: encode child refs: %w", err)
		}
		b.set("child_refs", string(refsJSON))
	}
	if in.FinalizedAt != nil {
		b.set("finalized_at", *in.FinalizedAt)
	}
	if in.CompactedAt != nil {
		b.set("compacted_at", *in.CompactedAt)
	}

	query, args := b.build("chunks", "id", id)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return domain.Chunk{}, false, fmt.Errorf("chunk repo: update %q: %w", id, err)
	}

	return r.getByIDWith(ctx, exec, id)
}

// Delete removes the chunk and reports whether a row was actually
// removed.
func (r *ChunkRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("chunk repo: delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("chunk repo: rows affected: %w", err)
	}
	return n > 0, nil
}

// GetBySession returns a session's chunks ordered by created_at ASC,
// optionally filtered by status.
func (r *ChunkRepo) GetBySession(ctx context.Context, sessionID string, filter domain.ChunkSessionFilter) ([]domain.Chunk, error) {
	query := chunkSelectColumns + " FROM chunks WHERE session_id = ?"
	args := []any{sessionID}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY created_at ASC"

	return r.queryChunks(ctx, query, args...)
}

// GetActive is sugar for GetBySession with status=active.
func (r *ChunkRepo) GetActive(ctx context.Context, sessionID string) ([]domain.Chunk, error) {
	active := domain.ChunkStatusActive
	return r.GetBySession(ctx, sessionID, domain.ChunkSessionFilter{Status: &active})
}

// GetChildren returns a chunk's direct children ordered by created_at ASC.
func (r *ChunkRepo) GetChildren(ctx context.Context, parentID string) ([]domain.Chunk, error) {
	query := chunkSelectColumns + " FROM chunks WHERE parent_id = ? ORDER BY created_at ASC"
	return r.queryChunks(ctx, query, parentID)
}

// Count returns the number of chunks, optionally filtered by session.
func (r *ChunkRepo) Count(ctx context.Context, sessionID *string) (int, error) {
	query := "SELECT COUNT(*) FROM chunks"
	var args []any
	if sessionID != nil {
		query += " WHERE session_id = ?"
		args = append(args, *sessionID)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("chunk repo: count: %w", err)
	}
	return count, nil
}

// RecentSummaries returns the most recently created summary chunks
// (depth > 0, non-null summary), newest first.
func (r *ChunkRepo) RecentSummaries(ctx context.Context, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		limit = 5
	}
	query := chunkSelectColumns + `
		FROM chunks
		WHERE depth > 0 AND summary IS NOT NULL
		ORDER BY created_at DESC
		LIMIT ?
	`
	return r.queryChunks(ctx, query, limit)
}

func (r *ChunkRepo) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chunk repo: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("chunk repo: scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chunk repo: iterate: %w", err)
	}
	return out, nil
}

func scanChunk(row scanner) (domain.Chunk, error) {
	var (
		c                                    domain.Chunk
		statusStr, contentJSON               string
		parentID, summary, childRefsJSON     sql.NullString
		finalizedAt, compactedAt             sql.NullInt64
		embedding                            []byte
	)

	err := row.Scan(&c.ID, &c.SessionID, &parentID, &c.Depth, &childRefsJSON, &contentJSON,
		&summary, &statusStr, &c.CreatedAt, &finalizedAt, &compactedAt, &embedding)
	if err != nil {
		return domain.Chunk{}, err
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
		return domain.Chunk{}, fmt.Errorf("decode content: %w", err)
	}

	if childRefsJSON.Valid && childRefsJSON.String != "" {
		if err := json.Unmarshal([]byte(childRefsJSON.String), &c.ChildRefs); err != nil {
			return domain.Chunk{}, fmt.Errorf("decode child refs: %w", err)
		}
	}

	return c, nil
}
