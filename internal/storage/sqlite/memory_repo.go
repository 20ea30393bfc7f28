package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coderef/memoir/internal/domain"
	"github.com/coderef/memoir/internal/ids"
)

// MemoryRepo is the persistence layer for memories: CRUD, filtered
// listing, and counting. It owns no prepared statements of its own beyond
// what database/sql caches internally for us.
type MemoryRepo struct {
	db *sql.DB
}

// NewMemoryRepo builds a repository over an already-migrated database
// handle.
func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func nowUnix() int64 {
	return time.Now().Unix()
}

// Create mints an id and inserts a new memory row.
func (r *MemoryRepo) Create(ctx context.Context, in domain.MemoryCreate) (domain.Memory, error) {
	id, err := ids.NewMemoryID()
	if err != nil {
		return domain.Memory{}, fmt.Errorf("memory repo: mint id: %w", err)
	}

	source := in.Source
	if source == "" {
		source = domain.MemorySourceUser
	}

	tagsJSON, err := encodeTags(in.Tags)
	if err != nil {
		return domain.Memory{}, fmt.Errorf("memory repo: encode tags: %w", err)
	}

	created := nowUnix()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, type, tags, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, id, in.Content, string(in.Type), tagsJSON, string(source), created)
	if err != nil {
		return domain.Memory{}, fmt.Errorf("memory repo: insert: %w", err)
	}

	return domain.Memory{
		ID:        id,
		Content:   in.Content,
		Type:      in.Type,
		Tags:      in.Tags,
		Source:    source,
		CreatedAt: created,
		UpdatedAt: nil,
	}, nil
}

// GetByID returns the memory, or ok=false if no row matches.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (domain.Memory, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, content, type, tags, source, created_at, updated_at, embedding
		FROM memories WHERE id = ?
	`, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return domain.Memory{}, false, nil
	}
	if err != nil {
		return domain.Memory{}, false, fmt.Errorf("memory repo: get %q: %w", id, err)
	}
	return m, true, nil
}

// Update applies only the provided fields, always refreshing updated_at.
// Returns ok=false if the row doesn't exist. A zero update returns the
// existing row untouched.
func (r *MemoryRepo) Update(ctx context.Context, id string, in domain.MemoryUpdate) (domain.Memory, bool, error) {
	existing, ok, err := r.GetByID(ctx, id)
	if err != nil || !ok {
		return domain.Memory{}, ok, err
	}

	if in.IsZero() {
		return existing, true, nil
	}

	var b updateBuilder
	if in.Content != nil {
		b.set("content", *in.Content)
	}
	if in.Type != nil {
		b.set("type", string(*in.Type))
	}
	if in.Tags != nil {
		tagsJSON, err := encodeTags(*in.Tags)
		if err != nil {
			return domain.Memory{}, false, fmt.Errorf("memory repo: encode tags: %w", err)
		}
		b.set("tags", tagsJSON)
	}
	b.set("updated_at", nowUnix())

	query, args := b.build("memories", "id", id)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Memory{}, false, fmt.Errorf("memory repo: update %q: %w", id, err)
	}

	return r.mustGet(ctx, id)
}

func (r *MemoryRepo) mustGet(ctx context.Context, id string) (domain.Memory, bool, error) {
	m, ok, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Memory{}, false, err
	}
	if !ok {
		return domain.Memory{}, false, fmt.Errorf("memory repo: %q vanished mid-update", id)
	}
	return m, true, nil
}

// Delete removes the memory and reports whether a row was actually
// removed.
func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("memory repo: delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("memory repo: rows affected: %w", err)
	}
	return n > 0, nil
}

// List returns memories ordered by created_at DESC, rowid DESC (rowid
// disambiguates same-second inserts), optionally filtered by type.
func (r *MemoryRepo) List(ctx context.Context, filter domain.MemoryListFilter) ([]domain.Memory, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, content, type, tags, source, created_at, updated_at, embedding
		FROM memories
	`
	var args []any
	if filter.Type != nil {
		query += " WHERE type = ?"
		args = append(args, string(*filter.Type))
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory repo: list: %w", err)
	}
	defer rows.Close()

	var out []domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("memory repo: scan list row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory repo: iterate list: %w", err)
	}
	return out, nil
}

// Count returns the number of memories, optionally filtered by type.
func (r *MemoryRepo) Count(ctx context.Context, memType *domain.MemoryType) (int, error) {
	query := "SELECT COUNT(*) FROM memories"
	var args []any
	if memType != nil {
		query += " WHERE type = ?"
		args = append(args, string(*memType))
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("memory repo: count: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (domain.Memory, error) {
	var (
		m         domain.Memory
		typeStr   string
		sourceStr sql.NullString
		tagsJSON  sql.NullString
		updatedAt sql.NullInt64
		embedding []byte
	)

	if err := row.Scan(&m.ID, &m.Content, &typeStr, &tagsJSON, &sourceStr, &m.CreatedAt, &updatedAt, &embedding); err != nil {
		return domain.Memory{}, err
	}

	m.Type = domain.MemoryType(typeStr)
	m.Source = domain.MemorySource(sourceStr.String)
	m.Embedding = embedding

	tags, err := decodeTags(tagsJSON)
	if err != nil {
		return domain.Memory{}, fmt.Errorf("decode tags: %w", err)
	}
	m.Tags = tags

	if updatedAt.Valid {
		v := updatedAt.Int64
		m.UpdatedAt = &v
	}

	return m, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		return "", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTags(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
