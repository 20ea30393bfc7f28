package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/ids"
	"github.com/coderef/memoir/internal/memoirerr"
)

// TreeEngine answers ancestor/descendant traversal queries over the chunk
// tree and performs atomic compaction. Traversal is expressed as a single
// recursive CTE per call so SQLite walks the tree, not Go.
type TreeEngine struct {
	db     *sql.DB
	chunks *ChunkRepo
}

// NewTreeEngine builds a tree engine over a chunk repository sharing the
// same database handle.
func NewTreeEngine(db *sql.DB, chunks *ChunkRepo) *TreeEngine {
	return &TreeEngine{db: db, chunks: chunks}
}

const ancestorsQuery = `
	WITH RECURSIVE ancestry(id, session_id, parent_id, depth, child_refs, content, summary, status,
	                         created_at, finalized_at, compacted_at, embedding, level) AS (
		SELECT id, session_id, parent_id, depth, child_refs, content, summary, status,
		       created_at, finalized_at, compacted_at, embedding, 0
		FROM chunks WHERE id = ?
		UNION ALL
		SELECT c.id, c.session_id, c.parent_id, c.depth, c.child_refs, c.content, c.summary, c.status,
		       c.created_at, c.finalized_at, c.compacted_at, c.embedding, ancestry.level + 1
		FROM chunks c
		JOIN ancestry ON c.id = ancestry.parent_id
	)
	SELECT id, session_id, parent_id, depth, child_refs, content, summary, status,
	       created_at, finalized_at, compacted_at, embedding, level
	FROM ancestry
	ORDER BY level DESC
`

// Ancestors walks from id up through parent_id links, root-first. A
// missing start id yields an empty, non-error sequence.
func (e *TreeEngine) Ancestors(ctx context.Context, id string) ([]domain.TreeNode, error) {
	return e.queryTree(ctx, ancestorsQuery, id)
}

const descendantsQuery = `
	WITH RECURSIVE descent(id, session_id, parent_id, depth, child_refs, content, summary, status,
	                        created_at, finalized_at, compacted_at, embedding, level) AS (
		SELECT id, session_id, parent_id, depth, child_refs, content, summary, status,
		       created_at, finalized_at, compacted_at, embedding, 0
		FROM chunks WHERE id = ?
		UNION ALL
		SELECT c.id, c.session_id, c.parent_id, c.depth, c.child_refs, c.content, c.summary, c.status,
		       c.created_at, c.finalized_at, c.compacted_at, c.embedding, descent.level + 1
		FROM chunks c
		JOIN descent ON c.parent_id = descent.id
	)
	SELECT id, session_id, parent_id, depth, child_refs, content, summary, status,
	       created_at, finalized_at, compacted_at, embedding, level
	FROM descent
	ORDER BY level ASC
`

// Descendants walks from id down through parent_id links, level-ascending.
// A missing start id yields an empty, non-error sequence.
func (e *TreeEngine) Descendants(ctx context.Context, id string) ([]domain.TreeNode, error) {
	return e.queryTree(ctx, descendantsQuery, id)
}

// FullContext is Ancestors with the level stripped, giving the path from
// root to target in order.
func (e *TreeEngine) FullContext(ctx context.Context, id string) ([]domain.Chunk, error) {
	nodes, err := e.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Chunk, len(nodes))
	for i, n := range nodes {
		out[i] = n.Chunk
	}
	return out, nil
}

func (e *TreeEngine) queryTree(ctx context.Context, query, id string) ([]domain.TreeNode, error) {
	rows, err := e.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("tree engine: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TreeNode
	for rows.Next() {
		node, err := scanTreeNode(rows)
		if err != nil {
			return nil, fmt.Errorf("tree engine: scan row: %w", err)
		}
		out = append(out, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tree engine: iterate: %w", err)
	}
	return out, nil
}

func scanTreeNode(row scanner) (domain.TreeNode, error) {
	var (
		c                                domain.Chunk
		statusStr, contentJSON           string
		parentID, summary, childRefsJSON sql.NullString
		finalizedAt, compactedAt         sql.NullInt64
		embedding                        []byte
		level                            int
	)

	err := row.Scan(&c.ID, &c.SessionID, &parentID, &c.Depth, &childRefsJSON, &contentJSON,
		&summary, &statusStr, &c.CreatedAt, &finalizedAt, &compactedAt, &embedding, &level)
	if err != nil {
		return domain.TreeNode{}, err
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
		return domain.TreeNode{}, fmt.Errorf("decode content: %w", err)
	}
	if childRefsJSON.Valid && childRefsJSON.String != "" {
		if err := json.Unmarshal([]byte(childRefsJSON.String), &c.ChildRefs); err != nil {
			return domain.TreeNode{}, fmt.Errorf("decode child refs: %w", err)
		}
	}

	return domain.TreeNode{Chunk: c, Level: level}, nil
}

// Compact folds chunkIDs under a new summary chunk, atomically. All-or-
// nothing: a missing id or any mid-transaction failure leaves the database
// untouched.
func (e *TreeEngine) Compact(ctx context.Context, sessionID string, chunkIDs []string, summary string) (domain.CompactResult, error) {
	if len(chunkIDs) == 0 {
		return domain.CompactResult{}, memoirerr.ErrEmptyChunkList
	}

	var result domain.CompactResult

	err := withTx(ctx, e.db, func(tx *sql.Tx) error {
		children := make([]domain.Chunk, 0, len(chunkIDs))
		var missing []string
		maxDepth := -1

		for _, id := range chunkIDs {
			c, ok, err := e.chunks.getByIDWith(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("tree engine: load %q: %w", id, err)
			}
			if !ok {
				missing = append(missing, id)
				continue
			}
			children = append(children, c)
			if c.Depth > maxDepth {
				maxDepth = c.Depth
			}
		}
		if len(missing) > 0 {
			return &memoirerr.MissingChunksError{IDs: missing}
		}

		newID, err := ids.NewChunkID()
		if err != nil {
			return fmt.Errorf("tree engine: mint summary id: %w", err)
		}

		childRefsJSON, err := json.Marshal(chunkIDs)
		if err != nil {
			return fmt.Errorf("tree engine: encode child refs: %w", err)
		}
		contentJSON, err := json.Marshal(domain.ChunkContent{})
		if err != nil {
			return fmt.Errorf("tree engine: encode summary content: %w", err)
		}

		now := nowUnix()
		summaryDepth := maxDepth + 1

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, session_id, parent_id, depth, child_refs, content, summary, status, created_at)
			VALUES (?, ?, NULL, ?, ?, ?, ?, 'active', ?)
		`, newID, sessionID, summaryDepth, string(childRefsJSON), string(contentJSON), summary, now)
		if err != nil {
			return fmt.Errorf("tree engine: insert summary chunk: %w", err)
		}

		for i := range children {
			_, err := tx.ExecContext(ctx, `
				UPDATE chunks SET parent_id = ?, status = 'compacted', compacted_at = ? WHERE id = ?
			`, newID, now, children[i].ID)
			if err != nil {
				return fmt.Errorf("tree engine: mark compacted %q: %w", children[i].ID, err)
			}
			children[i].ParentID = &newID
			children[i].Status = domain.ChunkStatusCompacted
			children[i].CompactedAt = &now
		}

		summaryChunk, ok, err := e.chunks.getByIDWith(ctx, tx, newID)
		if err != nil {
			return fmt.Errorf("tree engine: reload summary chunk: %w", err)
		}
		if !ok {
			return fmt.Errorf("tree engine: summary chunk %q vanished mid-transaction", newID)
		}

		result = domain.CompactResult{Summary: summaryChunk, Children: children}
		return nil
	})
	if err != nil {
		return domain.CompactResult{}, err
	}

	return result, nil
}
