package domain

// ChunkStatus tracks a chunk's position in the compaction lifecycle.
// Transitions are one-way: active to compacted never reverses. Archival is
// reserved; nothing in memoir drives a transition into it.
type ChunkStatus string

// The enumerated chunk statuses.
const (
	ChunkStatusActive    ChunkStatus = "active"
	ChunkStatusCompacted ChunkStatus = "compacted"
	ChunkStatusArchived  ChunkStatus = "archived"
)

// MessageRole constrains ChunkMessage.Role.
type MessageRole string

// The enumerated message roles.
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// PartType tags the variant of a Part.
type PartType string

// The enumerated part variants.
const (
	PartText      PartType = "text"
	PartTool      PartType = "tool"
	PartFile      PartType = "file"
	PartReasoning PartType = "reasoning"
)

// Part is a tagged union over a message's constituent pieces. The
// persisted JSON shape is {type, text?, tool?, input?, output?, ...} for
// compatibility with the content envelope's history.
type Part struct {
	Type PartType `json:"type"`

	// Text holds the body for PartText and PartReasoning.
	Text string `json:"text,omitempty"`

	// Tool, Input, Output apply only to PartTool.
	Tool   string `json:"tool,omitempty"`
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// ChunkMessage is one message embedded in a chunk's content envelope.
type ChunkMessage struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Parts     []Part      `json:"parts"`
	Timestamp int64       `json:"timestamp"`
}

// ChunkMetadata is the derived-on-finalize metadata attached to a chunk's
// content envelope. Fields are omitted, not emitted empty, when there is
// nothing to report.
type ChunkMetadata struct {
	ToolsUsed     []string `json:"tools_used,omitempty"`
	FilesModified []string `json:"files_modified,omitempty"`
	Outcome       string   `json:"outcome,omitempty"`
}

// ChunkContent is the JSON envelope stored in chunks.content.
type ChunkContent struct {
	Messages []ChunkMessage `json:"messages"`
	Metadata ChunkMetadata  `json:"metadata"`
}

// Chunk is one node in a session's compaction tree.
type Chunk struct {
	ID           string
	SessionID    string
	ParentID     *string
	Depth        int
	ChildRefs    []string
	Content      ChunkContent
	Summary      *string
	Status       ChunkStatus
	CreatedAt    int64
	FinalizedAt  *int64
	CompactedAt  *int64
	Embedding    []byte
}

// ChunkCreate carries the fields a caller supplies to create a chunk
// directly (bypassing finalization, the rare test/direct path).
type ChunkCreate struct {
	SessionID string
	Content   ChunkContent
	ParentID  *string
	Depth     int
	Summary   *string
}

// ChunkUpdate carries the optional fields a caller wants to change. A nil
// field is left untouched.
type ChunkUpdate struct {
	Content     *ChunkContent
	Summary     *string
	Status      *ChunkStatus
	ChildRefs   *[]string
	FinalizedAt *int64
	CompactedAt *int64
}

// IsZero reports whether the update carries no field changes.
func (u ChunkUpdate) IsZero() bool {
	return u.Content == nil && u.Summary == nil && u.Status == nil &&
		u.ChildRefs == nil && u.FinalizedAt == nil && u.CompactedAt == nil
}

// ChunkSessionFilter narrows GetBySession.
type ChunkSessionFilter struct {
	Status *ChunkStatus
}

// ChunkRanked pairs a chunk with its search rank (BM25 convention: lower
// is more relevant).
type ChunkRanked struct {
	Chunk Chunk
	Rank  float64
}

// TreeNode wraps a chunk with the traversal level the tree engine assigned
// it: 0 at the start chunk, increasing away from it.
type TreeNode struct {
	Chunk Chunk
	Level int
}

// CompactResult is returned by a successful compaction: the new summary
// chunk and the reloaded children it absorbed, now marked compacted.
type CompactResult struct {
	Summary  Chunk
	Children []Chunk
}
