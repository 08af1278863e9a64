package bucket

import (
	"errors"
	"strconv"
	"testing"
)

func TestBucket_Deterministic(t *testing.T) {
	h := New("test-seed")

	b1 := h.Bucket("user-123", "feature_x")
	b2 := h.Bucket("user-123", "feature_x")
	if b1 != b2 {
		t.Errorf("Bucket is not deterministic: got %d and %d", b1, b2)
	}
	if b1 < 0 || b1 >= 100 {
		t.Errorf("Bucket out of range: %d", b1)
	}
}

func TestBucket_Distribution(t *testing.T) {
	h := New("test-seed")
	bucketCounts := make([]int, 100)

	for i := 0; i < 10000; i++ {
		b := h.Bucket("user-"+strconv.Itoa(i), "feature_x")
		bucketCounts[b]++
	}

	// Roughly even: each bucket should have ~100 keys, allow 50% variance.
	for i, count := range bucketCounts {
		if count < 50 || count > 150 {
			t.Errorf("Bucket %d has %d keys, expected ~100", i, count)
		}
	}
}

func TestBucket_SaltsIndependent(t *testing.T) {
	h := New("test-seed")

	// With independent distributions per salt, the same keys should not land
	// in identical buckets across two salts. A handful of collisions are
	// expected by chance; total agreement would mean correlated rollouts.
	same := 0
	const n = 1000
	for i := 0; i < n; i++ {
		key := "user-" + strconv.Itoa(i)
		if h.Bucket(key, "flag_a") == h.Bucket(key, "flag_b") {
			same++
		}
	}
	if same > n/5 {
		t.Errorf("buckets agree for %d/%d keys across salts, distributions look correlated", same, n)
	}
}

func TestBucket_SeedChangesAssignment(t *testing.T) {
	h1 := New("seed-one")
	h2 := New("seed-two")

	same := 0
	const n = 1000
	for i := 0; i < n; i++ {
		key := "user-" + strconv.Itoa(i)
		if h1.Bucket(key, "feature_x") == h2.Bucket(key, "feature_x") {
			same++
		}
	}
	if same > n/5 {
		t.Errorf("buckets agree for %d/%d keys across seeds", same, n)
	}
}

func TestInPercentage_Monotonic(t *testing.T) {
	h := New("test-seed")

	// Once a key is inside a percentage it must stay inside every higher
	// percentage: raising a rollout can only add keys.
	for i := 0; i < 200; i++ {
		key := "user-" + strconv.Itoa(i)
		inside := false
		for pct := 0; pct <= 100; pct++ {
			in, err := h.InPercentage(key, "feature_x", pct)
			if err != nil {
				t.Fatalf("InPercentage(%d): %v", pct, err)
			}
			if inside && !in {
				t.Fatalf("key %q left the rollout when pct grew to %d", key, pct)
			}
			inside = in
		}
		if !inside {
			t.Fatalf("key %q not included at pct=100", key)
		}
	}
}

func TestInPercentage_FastPaths(t *testing.T) {
	h := New("test-seed")

	if in, err := h.InPercentage("user-123", "feature_x", 0); err != nil || in {
		t.Errorf("InPercentage(0) = (%v, %v), want (false, nil)", in, err)
	}
	if in, err := h.InPercentage("user-123", "feature_x", 100); err != nil || !in {
		t.Errorf("InPercentage(100) = (%v, %v), want (true, nil)", in, err)
	}
}

func TestInPercentage_InvalidPercentage(t *testing.T) {
	h := New("test-seed")

	for _, pct := range []int{-1, 101} {
		if _, err := h.InPercentage("user-123", "feature_x", pct); !errors.Is(err, ErrInvalidPercentage) {
			t.Errorf("InPercentage(%d) error = %v, want ErrInvalidPercentage", pct, err)
		}
	}
}
