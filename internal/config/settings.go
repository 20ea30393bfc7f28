// Package config holds the resolved settings record the host hands to the
// core at startup. Loading config files, resolving storage paths, and
// rewriting .gitignore are the host's job; this package only models the
// shape of what the host has already decided.
package config

// SearchMode selects how the search compiler executes a query. Only
// "fts" is implemented; the field exists so a future vector-search mode
// has somewhere to land without changing the Settings shape.
type SearchMode string

// Supported search modes.
const (
	SearchModeFTS SearchMode = "fts"
)

// Settings is the subset of host configuration the core consumes, per
// spec section 6.
type Settings struct {
	Memory  MemorySettings
	Chunks  ChunkSettings
	Search  SearchSettings
}

// MemorySettings configures the memory service.
type MemorySettings struct {
	// MaxInject bounds the number of memories search_relevant returns for
	// first-message context injection.
	MaxInject int
	// MaxSearchResults is the default limit for Search when the caller
	// doesn't specify one.
	MaxSearchResults int
	// KeywordDetection enables the keyword-triggered memory prompt.
	KeywordDetection bool
	// CustomKeywords are additional trigger phrases layered over the
	// built-in default set.
	CustomKeywords []string
}

// ChunkSettings configures chunk storage and compaction.
type ChunkSettings struct {
	// MaxContentSize is advisory only; spec section 9 notes it is honored
	// nowhere observable in the reference behavior. Chunk content is
	// stored verbatim regardless of this value.
	MaxContentSize int
	// MaxCompactionContext bounds how many active chunks a single
	// compaction call is expected to fold together. Advisory: the tree
	// engine does not enforce it, callers are expected to respect it when
	// building the chunk id list they pass to Compact.
	MaxCompactionContext int
	// AutoArchiveDays has no transition trigger in scope; status
	// "archived" is schema-only until a caller drives it.
	AutoArchiveDays int
}

// SearchSettings configures the search layer.
type SearchSettings struct {
	Mode SearchMode
}

// Default returns a Settings record with the values memoir uses absent
// host configuration: sensible for tests and for the memoirctl CLI.
func Default() Settings {
	return Settings{
		Memory: MemorySettings{
			MaxInject:        5,
			MaxSearchResults: 20,
			KeywordDetection: true,
			CustomKeywords:   nil,
		},
		Chunks: ChunkSettings{
			MaxContentSize:        1 << 20,
			MaxCompactionContext:  50,
			AutoArchiveDays:       90,
		},
		Search: SearchSettings{
			Mode: SearchModeFTS,
		},
	}
}
