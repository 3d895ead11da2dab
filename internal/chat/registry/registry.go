// Package registry tracks which chat sessions currently have a live
// detached process, keyed by session ID. The run loop polls it each
// cycle to detect cancellation, and the API uses it to reject a second
// turn on a session whose process is still running.
package registry

import (
	"errors"
	"hash/fnv"
	"sync"

	"github.com/ninedotdev/jean/internal/chat/proc"
)

// ErrSessionActive is returned by Register when the session already has
// a process that is still alive.
var ErrSessionActive = errors.New("session already has a running process")

const shardCount = 16

type shard struct {
	mu   sync.RWMutex
	pids map[string]int
}

// Registry is a sharded session-to-pid map. Shards keep a stuck check
// on one session from blocking registration of another.
type Registry struct {
	shards [shardCount]shard
	alive  proc.AliveFunc
}

// New creates a registry that uses the platform liveness probe. Tests
// inject their own probe via NewWithProbe.
func New() *Registry {
	return NewWithProbe(proc.Alive)
}

// NewWithProbe creates a registry with a custom liveness probe.
func NewWithProbe(alive proc.AliveFunc) *Registry {
	r := &Registry{alive: alive}
	for i := range r.shards {
		r.shards[i].pids = make(map[string]int)
	}
	return r
}

func (r *Registry) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &r.shards[h.Sum32()%shardCount]
}

// Register records pid as the running process for sessionID. A stale
// entry whose process has exited is silently replaced; an entry whose
// process is still alive makes the call fail with ErrSessionActive.
func (r *Registry) Register(sessionID string, pid int) error {
	s := r.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pids[sessionID]; ok {
		alive, err := r.alive(existing)
		if err == nil && alive {
			return ErrSessionActive
		}
	}
	s.pids[sessionID] = pid
	return nil
}

// Unregister removes the session's entry. Unregistering a session that
// is not present is a no-op; the run loop and a cancel request may race
// to do it.
func (r *Registry) Unregister(sessionID string) {
	s := r.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pids, sessionID)
}

// PID returns the registered pid for the session, if any.
func (r *Registry) PID(sessionID string) (int, bool) {
	s := r.shardFor(sessionID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.pids[sessionID]
	return pid, ok
}

// IsRegistered reports whether the session has an entry, live or not.
// The run loop uses this as its cancellation signal: once the entry is
// gone, the turn was cancelled.
func (r *Registry) IsRegistered(sessionID string) bool {
	s := r.shardFor(sessionID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pids[sessionID]
	return ok
}

// IsRunning reports whether the session has an entry whose process is
// still alive.
func (r *Registry) IsRunning(sessionID string) bool {
	pid, ok := r.PID(sessionID)
	if !ok {
		return false
	}
	alive, err := r.alive(pid)
	return err == nil && alive
}

// ListRunning returns the session IDs whose processes are alive. It is
// a pure query: a dead process still inside its run loop's grace window
// keeps its entry, because removing an entry is the cancellation signal
// and only Unregister may send it. Register replaces stale entries, so
// nothing here needs to prune.
func (r *Registry) ListRunning() []string {
	var running []string
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for sessionID, pid := range s.pids {
			alive, err := r.alive(pid)
			if err == nil && alive {
				running = append(running, sessionID)
			}
		}
		s.mu.RUnlock()
	}
	return running
}
