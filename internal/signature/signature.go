// Package signature computes deterministic fingerprints over note
// collections. A stored synthesis is valid exactly as long as the live
// note set still hashes to the signature it was computed from; there is no
// TTL on top of this.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/xaenox/remy-notes/internal/models"
)

// Compute returns the content signature of notes: (id, modified-at) pairs
// sorted lexicographically, joined, and SHA-256 hex encoded. Two note sets
// share a signature iff they contain the same notes with the same
// modification timestamps.
func Compute(notes []*models.Note) string {
	pairs := make([]string, len(notes))
	for i, note := range notes {
		pairs[i] = note.ID + ":" + strconv.FormatInt(note.ModifiedAt().UnixMilli(), 10)
	}
	sort.Strings(pairs)

	sum := sha256.Sum256([]byte(strings.Join(pairs, "|")))
	return hex.EncodeToString(sum[:])
}
