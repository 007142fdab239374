package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	var km keyedMutex

	const workers = 16
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("device-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	var km keyedMutex

	unlock := km.lock("device-1")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	var km keyedMutex

	unlockA := km.lock("device-a")
	defer unlockA()

	// A different key must not block.
	done := make(chan struct{})
	go func() {
		unlockB := km.lock("device-b")
		unlockB()
		close(done)
	}()
	<-done
}
