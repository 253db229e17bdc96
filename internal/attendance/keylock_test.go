package attendance

import (
	"sync"
	"testing"
)

func TestKeyLocksSerializesPerKey(t *testing.T) {
	locks := newKeyLocks()

	const workers = 16
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("emp001/2026-08-28")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("Expected counter %d, got %d", workers, counter)
	}
}

func TestKeyLocksDropsIdleEntries(t *testing.T) {
	locks := newKeyLocks()

	unlock := locks.lock("a")
	unlock()
	unlock = locks.lock("b")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.entries) != 0 {
		t.Errorf("Expected no retained lock entries, got %d", len(locks.entries))
	}
}
