package app

import (
	"fmt"
	"sync"
	"testing"
)

func TestDedupCache_Idempotent(t *testing.T) {
	cache, err := NewDedupCache(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cache.ShouldAlert(WhaleEvent{Source: SourceEthereum, ID: "0xabc"}) {
		t.Error("expected first sighting to alert")
	}
	if cache.ShouldAlert(WhaleEvent{Source: SourceEthereum, ID: "0xabc"}) {
		t.Error("expected second sighting to be suppressed")
	}
}

func TestWhaleEventDedupKey(t *testing.T) {
	ev := WhaleEvent{Source: SourceEthereum, ID: "0xabc"}
	if got := ev.DedupKey(); got != "ethereum:0xabc" {
		t.Errorf("DedupKey() = %q, want ethereum:0xabc", got)
	}
}

func TestDedupCache_KeyedBySource(t *testing.T) {
	cache, _ := NewDedupCache(10)

	if !cache.ShouldAlert(WhaleEvent{Source: SourceEthereum, ID: "abc"}) {
		t.Error("expected first sighting to alert")
	}
	// Same id on another source is a distinct key.
	if !cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "abc"}) {
		t.Error("expected same id on different source to alert")
	}
}

func TestDedupCache_Bounded(t *testing.T) {
	const maxSize = 100
	cache, _ := NewDedupCache(maxSize)

	for i := 0; i < maxSize+50; i++ {
		cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: fmt.Sprintf("tx%d", i)})
	}

	if cache.Len() > maxSize {
		t.Errorf("expected cache size <= %d, got %d", maxSize, cache.Len())
	}
}

func TestDedupCache_EvictsOldestFirst(t *testing.T) {
	cache, _ := NewDedupCache(3)

	cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "a"})
	cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "b"})
	cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "c"})
	cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "d"}) // evicts a

	if !cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "a"}) {
		t.Error("expected oldest entry to have been evicted")
	}
	if cache.ShouldAlert(WhaleEvent{Source: SourceBitcoin, ID: "d"}) {
		t.Error("expected newest entry to still be present")
	}
}

func TestDedupCache_ConcurrentSingleWinner(t *testing.T) {
	cache, _ := NewDedupCache(1000)

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cache.ShouldAlert(WhaleEvent{Source: SourceHyperliquid, ID: "same-event"}) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func TestNewDedupCache_RejectsBadSize(t *testing.T) {
	if _, err := NewDedupCache(0); err == nil {
		t.Error("expected error for zero size")
	}
}
