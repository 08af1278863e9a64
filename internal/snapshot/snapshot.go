// Package snapshot holds the active, immutable set of validated flags behind
// an atomically swappable pointer. Readers never block: an evaluation either
// sees the old snapshot in full or the new one in full. The configuration
// source is the only writer; it builds a fully validated snapshot off to the
// side and publishes it with a single pointer swap.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/variantd/variantd/internal/flags"
)

// Snapshot is one published generation of the flag set.
type Snapshot struct {
	ETag       string            `json:"etag"`
	Collection *flags.Collection `json:"-"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// MarshalJSON serializes the snapshot with its flags inlined, keeping the
// wire shape stable for the /v1/flags/snapshot endpoint.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ETag      string                `json:"etag"`
		Flags     map[string]flags.Flag `json:"flags"`
		UpdatedAt time.Time             `json:"updatedAt"`
	}{
		ETag:      s.ETag,
		Flags:     s.Collection.All(),
		UpdatedAt: s.UpdatedAt,
	})
}

var current atomic.Pointer[Snapshot]

// Load returns the active snapshot. Before the first publish it returns an
// empty snapshot so callers never observe nil.
func Load() *Snapshot {
	if s := current.Load(); s != nil {
		return s
	}
	return &Snapshot{
		ETag:       "",
		Collection: flags.NewCollection(nil),
		UpdatedAt:  time.Now().UTC(),
	}
}

// Build creates a snapshot from an already validated flag list. The ETag is
// a weak hash of the serialized flag set, so unchanged flag sets keep their
// ETag across rebuilds.
func Build(list []flags.Flag) *Snapshot {
	col := flags.NewCollection(list)
	blob, _ := json.Marshal(col.All())
	sum := sha256.Sum256(blob)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return &Snapshot{ETag: etag, Collection: col, UpdatedAt: time.Now().UTC()}
}

// Update publishes s as the active snapshot and notifies stream listeners.
func Update(s *Snapshot) {
	current.Store(s)
	publishUpdate(s.ETag)
}
