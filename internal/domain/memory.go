// Package domain holds the persisted entity shapes shared by the memory
// and chunk repositories, the tree engine, and the search compiler.
package domain

// MemoryType constrains the "type" column on memories to its enumerated
// set.
type MemoryType string

// The enumerated memory types.
const (
	MemoryTypePreference MemoryType = "preference"
	MemoryTypePattern    MemoryType = "pattern"
	MemoryTypeGotcha     MemoryType = "gotcha"
	MemoryTypeFact       MemoryType = "fact"
	MemoryTypeLearned    MemoryType = "learned"
)

// MemorySource records who or what produced a memory.
type MemorySource string

// The enumerated memory sources.
const (
	MemorySourceUser       MemorySource = "user"
	MemorySourceCompaction MemorySource = "compaction"
	MemorySourceAuto       MemorySource = "auto"
)

// Memory is a single curated fact, preference, pattern, gotcha, or learned
// item about a repository.
type Memory struct {
	ID        string
	Content   string
	Type      MemoryType
	Tags      []string
	Source    MemorySource
	CreatedAt int64
	UpdatedAt *int64
	Embedding []byte
}

// MemoryCreate carries the fields a caller supplies to create a memory.
// Source defaults to MemorySourceUser when empty.
type MemoryCreate struct {
	Content string
	Type    MemoryType
	Tags    []string
	Source  MemorySource
}

// MemoryUpdate carries the optional fields a caller wants to change.
// A nil field is left untouched; UpdatedAt is always refreshed when any
// field is set.
type MemoryUpdate struct {
	Content *string
	Type    *MemoryType
	Tags    *[]string
}

// IsZero reports whether the update carries no field changes.
func (u MemoryUpdate) IsZero() bool {
	return u.Content == nil && u.Type == nil && u.Tags == nil
}

// MemoryListFilter narrows List.
type MemoryListFilter struct {
	Limit  int
	Offset int
	Type   *MemoryType
}

// MemoryRanked pairs a memory with its search rank (BM25 convention:
// lower is more relevant).
type MemoryRanked struct {
	Memory Memory
	Rank   float64
}
