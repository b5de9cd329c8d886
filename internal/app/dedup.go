package app

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DedupCache is a bounded set of (source, id) keys used to suppress
// duplicate alerts. Check-and-record is atomic, so two sources racing on
// the same key cannot both win. When the set is full the oldest entry is
// evicted first.
type DedupCache struct {
	seen *lru.Cache[string, struct{}]
}

func NewDedupCache(maxSize int) (*DedupCache, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("dedup cache size must be positive, got %d", maxSize)
	}

	seen, err := lru.New[string, struct{}](maxSize)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &DedupCache{seen: seen}, nil
}

// ShouldAlert records the event's dedup key and returns true if it has
// not been seen before; returns false for a key that is already present.
func (d *DedupCache) ShouldAlert(ev WhaleEvent) bool {
	present, _ := d.seen.ContainsOrAdd(ev.DedupKey(), struct{}{})
	return !present
}

// Len returns the current number of tracked keys.
func (d *DedupCache) Len() int {
	return d.seen.Len()
}
