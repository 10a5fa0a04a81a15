package feed

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies what changed
type EventKind string

const (
	EventPageLoaded     EventKind = "page_loaded"
	EventLikeChanged    EventKind = "like_changed"
	EventCommentAdded   EventKind = "comment_added"
	EventCommentRemoved EventKind = "comment_removed"
	EventViewerChanged  EventKind = "viewer_changed"
	EventWarning        EventKind = "warning"
	EventAuthRequired   EventKind = "auth_required"
)

// Event is a notification from a controller. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind      EventKind
	At        time.Time
	PostID    string
	PostIDs   []string
	Like      LikeSnapshot
	Pending   bool
	Comment   *Comment
	CommentID string
	Comments  int
	Viewer    Viewer
	LoginURL  string
	Err       error
}

// Subscription receives events on a buffered channel
type Subscription struct {
	id      uint64
	ch      chan Event
	kinds   map[EventKind]bool
	bus     *Bus
	dropped atomic.Int64
}

// Events returns the delivery channel. It is closed when the subscription or
// the bus is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped reports how many events were discarded because the buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

func (s *Subscription) wants(k EventKind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

// Bus fans events out to subscribers without ever blocking the publisher
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	onDrop func(EventKind)
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a subscriber with the given buffer. With no kinds the
// subscriber receives everything.
func (b *Bus) Subscribe(buffer int, kinds ...EventKind) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	s := &Subscription{ch: make(chan Event, buffer), bus: b}
	if len(kinds) > 0 {
		s.kinds = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	return s
}

// Publish delivers e to every interested subscriber whose buffer has room
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if !s.wants(e.Kind) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(e.Kind)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		close(s.ch)
		delete(b.subs, id)
	}
}
