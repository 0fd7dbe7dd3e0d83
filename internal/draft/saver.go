package draft

import (
	"context"
	"log"
	"sync"
	"time"

	"flotilla/api/internal/checklist"
)

// Saver coalesces rapid successive saves of the same draft into a single
// storage write using a trailing-edge debounce: each new save replaces the
// pending state and restarts the key's quiet-period timer, so N edits inside
// the window cost one write carrying the latest state. Different keys
// debounce independently.
type Saver struct {
	store *Store
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
	closed  bool
}

type pendingSave struct {
	timer *time.Timer
	state checklist.State
}

// NewSaver wraps a Store with a debounce window. A non-positive delay writes
// through immediately.
func NewSaver(store *Store, delay time.Duration) *Saver {
	return &Saver{
		store:   store,
		delay:   delay,
		pending: make(map[string]*pendingSave),
	}
}

// Save schedules a debounced write of the state under the key. The write
// happens once the quiet period elapses with no further saves for the key.
// Storage errors are logged, not returned: by the time the timer fires there
// is nobody left to report them to, and a lost draft write is recoverable.
func (s *Saver) Save(key string, state checklist.State) {
	if s.delay <= 0 {
		s.write(key, state)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if p, ok := s.pending[key]; ok {
		p.state = state
		p.timer.Reset(s.delay)
		return
	}

	p := &pendingSave{state: state}
	p.timer = time.AfterFunc(s.delay, func() { s.flushKey(key) })
	s.pending[key] = p
}

// Cancel drops any pending write for the key without flushing it. Used when
// the draft is being cleared so a stale timer cannot resurrect it.
func (s *Saver) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Flush writes out every pending draft immediately. Called on shutdown so a
// restart does not eat the last quiet period's edits.
func (s *Saver) Flush() {
	s.mu.Lock()
	flushing := make(map[string]checklist.State, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		flushing[key] = p.state
		delete(s.pending, key)
	}
	s.mu.Unlock()

	for key, state := range flushing {
		s.write(key, state)
	}
}

// Close flushes pending writes and rejects further saves.
func (s *Saver) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Flush()
}

func (s *Saver) flushKey(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.write(key, p.state)
}

func (s *Saver) write(key string, state checklist.State) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, key, state); err != nil {
		log.Printf("draft: save skipped for %s: %v", key, err)
	}
}
