// Package memoirerr defines the cross-cutting error kinds shared by the
// persistence engine, tree engine, and search compiler.
package memoirerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyChunkList is returned by compaction when the caller passes no
// chunk ids to fold into a summary.
var ErrEmptyChunkList = errors.New("memoir: chunk id list is empty")

// MissingChunksError reports that one or more chunk ids named in a
// compaction request do not exist. Compaction fails atomically and leaves
// the database untouched.
type MissingChunksError struct {
	IDs []string
}

func (e *MissingChunksError) Error() string {
	return fmt.Sprintf("memoir: missing chunks: %s", strings.Join(e.IDs, ", "))
}

// AsMissingChunks reports whether err is a *MissingChunksError.
func AsMissingChunks(err error) (*MissingChunksError, bool) {
	var mc *MissingChunksError
	if errors.As(err, &mc) {
		return mc, true
	}
	return nil, false
}
