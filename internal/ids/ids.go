// Package ids mints prefixed, random identifiers for memories and chunks.
package ids

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MemoryPrefix and ChunkPrefix are the id prefixes for the two entity kinds.
const (
	MemoryPrefix = "mem"
	ChunkPrefix  = "ch"
	length       = 12
)

// New mints "{prefix}_" followed by length base62 characters, each chosen
// by reducing a cryptographically random byte modulo 62.
// Collisions are not checked here; callers that persist the id are expected
// to surface the resulting unique-constraint violation as fatal.
func New(prefix string) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ids: read random bytes: %w", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}

	return prefix + "_" + string(out), nil
}

// NewMemoryID mints a "mem_" prefixed id.
func NewMemoryID() (string, error) {
	return New(MemoryPrefix)
}

// NewChunkID mints a "ch_" prefixed id.
func NewChunkID() (string, error) {
	return New(ChunkPrefix)
}

// Length is the number of random characters following the prefix separator.
func Length() int {
	return length
}
