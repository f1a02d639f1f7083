package form

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeyField is the hidden input that carries a form's submission key.
const KeyField = "_submission"

// NewKey returns a fresh submission key.
func NewKey() string {
	return uuid.NewString()
}

type guardState int

const (
	guardInFlight guardState = iota
	guardDone
)

type guardEntry struct {
	state guardState
	at    time.Time
}

// Guard remembers submission keys across requests so that a form posted
// twice in quick succession reaches the collaborator only once. Keys of
// failed submissions are released so the user can try again.
type Guard struct {
	mu      sync.Mutex
	entries map[string]guardEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewGuard creates a guard that forgets keys after ttl.
func NewGuard(ttl time.Duration) *Guard {
	return &Guard{
		entries: make(map[string]guardEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Begin claims key for a submission. It returns ErrBusy if the key is in
// flight and ErrDone if it already succeeded. An empty key is not tracked.
func (g *Guard) Begin(key string) error {
	if key == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)

	if e, ok := g.entries[key]; ok {
		if e.state == guardInFlight {
			return ErrBusy
		}
		return ErrDone
	}
	g.entries[key] = guardEntry{state: guardInFlight, at: now}
	return nil
}

// Finish records the outcome of the submission that claimed key.
func (g *Guard) Finish(key string, succeeded bool) {
	if key == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if succeeded {
		g.entries[key] = guardEntry{state: guardDone, at: g.now()}
		return
	}
	delete(g.entries, key)
}

// Len returns the number of tracked keys.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Guard) sweep(now time.Time) {
	for k, e := range g.entries {
		if now.Sub(e.at) > g.ttl {
			delete(g.entries, k)
		}
	}
}
