package sync

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			_ = m.WithLock("session-1", func() error {
				counter++
				return nil
			})
		})
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestShardedMutex_WithLockReturnsError(t *testing.T) {
	m := NewShardedMutex()
	boom := errors.New("boom")
	assert.ErrorIs(t, m.WithLock("k", func() error { return boom }), boom)

	// the shard was released
	m.Lock("k")
	m.Unlock("k")
}

func TestShardedMutex_Distribution(t *testing.T) {
	m := NewShardedMutex()
	shards := make(map[int]bool)
	for range 32 {
		shards[m.shardFor(uuid.NewString())] = true
	}
	assert.GreaterOrEqual(t, len(shards), 8, "session IDs should spread across shards")
	assert.Equal(t, 0, m.shardFor(""))
	assert.Equal(t, m.shardFor("abc"), m.shardFor("abc"))
}

func TestNewShardedMutexN_Minimum(t *testing.T) {
	m := NewShardedMutexN(0)
	assert.Len(t, m.shards, 1)
	assert.Equal(t, 0, m.shardFor("anything"))
}
