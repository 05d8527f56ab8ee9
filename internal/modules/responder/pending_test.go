package responder

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingStoreAppendAndSnapshot(t *testing.T) {
	s := NewPendingStore()

	_, ok := s.Snapshot("chat-1")
	require.False(t, ok, "empty store must have no snapshot")

	s.Append("chat-1", "A")
	snap, ok := s.Snapshot("chat-1")
	require.True(t, ok)
	assert.Equal(t, "A", snap.Text)
	assert.Equal(t, uint64(1), snap.Version)

	s.Append("chat-1", "B")
	snap, ok = s.Snapshot("chat-1")
	require.True(t, ok)
	assert.Equal(t, "A\n\n\nB", snap.Text)
	assert.Equal(t, uint64(2), snap.Version)

	// snapshotting must not mutate
	again, ok := s.Snapshot("chat-1")
	require.True(t, ok)
	assert.Equal(t, snap, again)
}

func TestPendingStoreResolve(t *testing.T) {
	s := NewPendingStore()
	s.Append("chat-1", "A")
	stale, _ := s.Snapshot("chat-1")

	s.Append("chat-1", "B")
	fresh, _ := s.Snapshot("chat-1")

	assert.False(t, s.ResolveIfCurrent("chat-1", stale.Version), "superseded snapshot must not resolve")
	if _, ok := s.Snapshot("chat-1"); !ok {
		t.Fatal("failed resolve must not delete the entry")
	}

	assert.True(t, s.ResolveIfCurrent("chat-1", fresh.Version))
	_, ok := s.Snapshot("chat-1")
	assert.False(t, ok, "successful resolve deletes the entry")

	// resolving an absent entry is a normal stale outcome, not an error
	assert.False(t, s.ResolveIfCurrent("chat-1", fresh.Version))
	assert.False(t, s.ResolveIfCurrent("never-seen", 1))
}

func TestPendingStoreEndsWith(t *testing.T) {
	s := NewPendingStore()
	s.Append("chat-1", "hello")
	s.Append("chat-1", "world")

	assert.True(t, s.EndsWith("chat-1", "world"))
	assert.False(t, s.EndsWith("chat-1", "hello"))
	assert.False(t, s.EndsWith("chat-2", "world"))
}

func TestPendingStoreIndependentChats(t *testing.T) {
	s := NewPendingStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chatID := fmt.Sprintf("chat-%d", i)
			for j := 0; j < 100; j++ {
				s.Append(chatID, "m")
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		snap, ok := s.Snapshot(fmt.Sprintf("chat-%d", i))
		require.True(t, ok)
		assert.Equal(t, uint64(100), snap.Version)
	}
}
