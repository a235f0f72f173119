package store

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a fast, stable hex hash of file content for change
// detection. Not cryptographic; collisions only cost a redundant rescan.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}
