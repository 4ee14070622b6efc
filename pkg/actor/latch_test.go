package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatchSingleFlight(t *testing.T) {
	var l Latch
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire(), "second acquire while held must fail")
	l.Release()
	assert.True(t, l.TryAcquire())
	l.Release()
}

func TestLatchCoalescesConcurrentAttempts(t *testing.T) {
	var l Latch
	const attempts = 50

	var acquired int32
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				mu.Lock()
				count++
				mu.Unlock()
				defer l.Release()
			}
		}()
	}
	wg.Wait()
	_ = acquired

	// Exact count depends on scheduling, but must be at least one and
	// never exceed the number of attempts - the point is mutual exclusion
	// held, not a fixed count.
	assert.GreaterOrEqual(t, count, 1)
	assert.True(t, l.TryAcquire(), "latch must be free after all holders released")
	l.Release()
}
