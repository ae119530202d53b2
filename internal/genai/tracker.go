package genai

import (
	"context"
	"sync"
)

// Token identifies one in-flight request for an entity.
type Token struct {
	key string
	seq uint64
}

// Key returns the entity key the token was issued for.
func (t Token) Key() string { return t.key }

// Tracker keeps the latest request per entity. Starting a new request for an
// entity cancels the previous one, and a response is only applied when its
// token is still the latest.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	latest  map[string]uint64
	cancels map[string]context.CancelFunc
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: map[string]uint64{}, cancels: map[string]context.CancelFunc{}}
}

// Begin starts a request for key, cancelling any earlier one.
func (t *Tracker) Begin(parent context.Context, key string) (context.Context, Token) {
	ctx, cancel := context.WithCancel(parent)
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.cancels[key]; ok {
		prev()
	}
	t.seq++
	t.latest[key] = t.seq
	t.cancels[key] = cancel
	return ctx, Token{key: key, seq: t.seq}
}

// Commit reports whether tok is still the latest request for its key. A
// committed token releases its entry.
func (t *Tracker) Commit(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest[tok.key] != tok.seq {
		return false
	}
	t.release(tok.key)
	return true
}

// Done releases tok without committing. It is safe to call after Commit.
func (t *Tracker) Done(tok Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest[tok.key] == tok.seq {
		t.release(tok.key)
	}
}

// InFlight reports whether a request for key is running.
func (t *Tracker) InFlight(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.latest[key]
	return ok
}

func (t *Tracker) release(key string) {
	if cancel, ok := t.cancels[key]; ok {
		cancel()
	}
	delete(t.cancels, key)
	delete(t.latest, key)
}
