package distlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("acme.com")
			defer km.Unlock("acme.com")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutexDistinctKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("held.com")
	defer km.Unlock("held.com")

	done := make(chan struct{})
	go func() {
		km.Lock("other.com")
		km.Unlock("other.com")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a distinct key blocked")
	}
}

func TestKeyedMutexEntriesAreReleased(t *testing.T) {
	km := NewKeyedMutex()

	for i := 0; i < 100; i++ {
		km.Lock("acme.com")
		km.Unlock("acme.com")
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
