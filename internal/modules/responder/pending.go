package responder

import (
	"hash/fnv"
	"strings"
	"sync"
)

// Snapshot is the pending context of one chat as seen at dispatch time.
// Version increases on every append; a task may commit only if the version
// it snapshotted is still current when it finishes.
type Snapshot struct {
	Text    string
	Version uint64
}

const pendingShards = 32

type pendingEntry struct {
	text    string
	version uint64
}

type pendingShard struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

// PendingStore holds the not-yet-answered parent input per chat. Sharding
// keeps unrelated chats from blocking each other; operations on the same
// chat are linearizable through the shard lock. Contents are in-memory only
// and lost on restart.
type PendingStore struct {
	shards [pendingShards]pendingShard
}

func NewPendingStore() *PendingStore {
	s := &PendingStore{}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*pendingEntry)
	}
	return s
}

func (s *PendingStore) shardFor(chatID string) *pendingShard {
	h := fnv.New32a()
	h.Write([]byte(chatID))
	return &s.shards[h.Sum32()%pendingShards]
}

// Append adds text to the chat's pending context, creating the entry when
// none exists.
func (s *PendingStore) Append(chatID, text string) {
	sh := s.shardFor(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[chatID]
	if !ok {
		sh.entries[chatID] = &pendingEntry{text: text, version: 1}
		return
	}
	e.text = e.text + ContextSeparator + text
	e.version++
}

// Snapshot returns the current pending context without mutating it.
func (s *PendingStore) Snapshot(chatID string) (Snapshot, bool) {
	sh := s.shardFor(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[chatID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Text: e.text, Version: e.version}, true
}

// ResolveIfCurrent deletes the entry and returns true when the stored
// version still equals the snapshotted one. An absent entry or a newer
// version returns false without mutating anything: the caller is stale and
// must not commit. Absence is a normal outcome here, not an error; a
// fresher task may have resolved the entry first.
func (s *PendingStore) ResolveIfCurrent(chatID string, version uint64) bool {
	sh := s.shardFor(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[chatID]
	if !ok || e.version != version {
		return false
	}
	delete(sh.entries, chatID)
	return true
}

// EndsWith reports whether the chat's current pending context ends with the
// given text. Kept for diagnostics; freshness decisions use version
// counters, which stay unambiguous when two messages share trailing text.
func (s *PendingStore) EndsWith(chatID, suffix string) bool {
	sh := s.shardFor(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[chatID]
	return ok && strings.HasSuffix(e.text, suffix)
}
