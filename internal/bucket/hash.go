// Package bucket provides deterministic key bucketing for percentage
// rollouts. It uses consistent hashing to assign keys to buckets (0-99)
// based on the key, a per-flag salt, and a process-wide seed. This ensures:
//   - Same key always gets the same bucket for a flag (deterministic)
//   - Even distribution across buckets (uses xxHash algorithm)
//   - Different salts give independent distributions for the same key,
//     so rollouts of unrelated flags are not correlated
//   - Safe progressive rollouts (increasing from 10% to 20% only adds keys,
//     never removes them, because each key's bucket is fixed)
package bucket

import (
	"errors"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidPercentage is returned when a percentage is not in 0-100.
var ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

// Hasher computes deterministic buckets. The seed is fixed once per process
// (or per configured deployment) so bucket assignments survive restarts.
type Hasher struct {
	seed string
}

// New creates a Hasher with the given seed.
func New(seed string) *Hasher {
	return &Hasher{seed: seed}
}

// Bucket returns a deterministic bucket (0-99) for the given key and salt.
// The same seed + key + salt combination always returns the same bucket.
func (h *Hasher) Bucket(key, salt string) int {
	// Delimiters keep distinct (key, salt) pairs from colliding after
	// concatenation.
	sum := xxhash.Sum64String(h.seed + ":" + key + ":" + salt)
	return int(sum % 100)
}

// InPercentage reports whether key falls inside the first pct buckets for
// the given salt.
//
// Special cases:
//   - pct=0: always false (rolled out to nobody)
//   - pct=100: always true (rolled out to everybody)
//
// Example: pct=25 includes ~25% of keys. Increasing pct from 25 to 50 adds
// keys and never removes existing ones.
func (h *Hasher) InPercentage(key, salt string, pct int) (bool, error) {
	if pct < 0 || pct > 100 {
		return false, ErrInvalidPercentage
	}
	if pct == 0 {
		return false, nil // Fast path: disabled for everyone
	}
	if pct == 100 {
		return true, nil // Fast path: enabled for everyone
	}
	return h.Bucket(key, salt) < pct, nil
}
