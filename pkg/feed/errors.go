package feed

import (
	"errors"
	"sync"
)

var (
	// ErrDetached is returned when a response arrives after the controller
	// was closed or reset; the response is dropped.
	ErrDetached = errors.New("feed: detached")

	// ErrNotConfirmed is returned when the viewer declines a removal
	ErrNotConfirmed = errors.New("feed: removal not confirmed")

	// ErrUnknownPost is returned for a post id that is not in the loaded feed
	ErrUnknownPost = errors.New("feed: unknown post")
)

// lifecycle tracks whether responses may still be committed. Every request
// captures the generation it started in and commits only if it is unchanged.
type lifecycle struct {
	mu     sync.Mutex
	gen    uint64
	closed bool
}

func newLifecycle() *lifecycle {
	return &lifecycle{}
}

func (l *lifecycle) begin() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrDetached
	}
	return l.gen, nil
}

func (l *lifecycle) valid(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && l.gen == gen
}

// commit runs fn only if gen is still current. A reset or close waits for
// fn to return. fn must not call back into the lifecycle.
func (l *lifecycle) commit(gen uint64, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.gen != gen {
		return false
	}
	fn()
	return true
}

// advance starts a new generation and runs fn before any request can begin
// in it
func (l *lifecycle) advance(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrDetached
	}
	l.gen++
	fn()
	return nil
}

func (l *lifecycle) close() {
	l.mu.Lock()
	l.closed = true
	l.gen++
	l.mu.Unlock()
}
