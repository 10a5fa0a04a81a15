package feed

import "sync"

// LikeSnapshot is a like flag together with the post's like counter
type LikeSnapshot struct {
	Liked bool
	Count int
}

// toward returns the snapshot after moving s to the intended flag, applying
// the optimistic ±1 (floored at 0) only if the flag actually changes.
func (s LikeSnapshot) toward(liked bool) LikeSnapshot {
	if s.Liked == liked {
		return s
	}
	if liked {
		return LikeSnapshot{Liked: true, Count: s.Count + 1}
	}
	return LikeSnapshot{Liked: false, Count: max(0, s.Count-1)}
}

// lane is the engagement state of one post.
//
// settled is the last server-confirmed like state. display is what the viewer
// sees; it differs from settled only while pending > 0. sem serializes like
// requests so they reach the server in invocation order.
type lane struct {
	settled LikeSnapshot
	display LikeSnapshot
	pending int
	sem     chan struct{}

	comments   int
	commentOps int
}

type engagementView struct {
	like     LikeSnapshot
	pending  bool
	comments int
}

// ledger owns every lane of one controller. Page loads and mutations both
// write to it; a lane with work in flight is never overwritten by a load.
type ledger struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

func newLedger() *ledger {
	return &ledger{lanes: make(map[string]*lane)}
}

func (l *ledger) laneLocked(id string) *lane {
	ln, ok := l.lanes[id]
	if !ok {
		ln = &lane{sem: make(chan struct{}, 1)}
		l.lanes[id] = ln
	}
	return ln
}

// observePosts seeds counters from freshly loaded posts
func (l *ledger) observePosts(posts []Post) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range posts {
		ln := l.laneLocked(p.ID)
		if ln.pending == 0 {
			ln.settled.Count = max(0, p.Likes)
			ln.display = ln.settled
		}
		if ln.commentOps == 0 {
			ln.comments = max(0, p.Comments)
		}
	}
}

// observeLiked merges resolved like statuses. Ids outside statuses are not
// touched.
func (l *ledger) observeLiked(statuses map[string]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, liked := range statuses {
		ln, ok := l.lanes[id]
		if !ok || ln.pending > 0 {
			continue
		}
		ln.settled.Liked = liked
		ln.display = ln.settled
	}
}

func (l *ledger) view(id string) engagementView {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.lanes[id]
	if !ok {
		return engagementView{}
	}
	return engagementView{like: ln.display, pending: ln.pending > 0, comments: ln.comments}
}

// like returns the displayed like state of a post
func (l *ledger) like(id string) (LikeSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.lanes[id]
	if !ok {
		return LikeSnapshot{}, false
	}
	return ln.display, true
}

// beginToggle applies the optimistic flip on top of whatever the previous
// toggle left displayed and returns the intended flag.
func (l *ledger) beginToggle(id string) (*lane, bool, LikeSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln := l.laneLocked(id)
	intent := !ln.display.Liked
	ln.display = ln.display.toward(intent)
	ln.pending++
	return ln, intent, ln.display
}

// alreadySettled reports whether the server already holds the intended flag
func (l *ledger) alreadySettled(ln *lane, intent bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ln.settled.Liked == intent
}

// toggleOutcome is the lane after one toggle was reconciled
type toggleOutcome struct {
	display LikeSnapshot
	settled LikeSnapshot
	pending bool
}

// finishToggle reconciles one toggle. A nil result means the request failed
// or was not needed; settled is left as it was. With nothing else pending the
// display becomes exactly settled, otherwise the latest intent is projected
// onto the confirmed counter.
func (l *ledger) finishToggle(ln *lane, res *LikeResult) toggleOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	if res != nil {
		ln.settled = LikeSnapshot{Liked: res.Liked, Count: max(0, res.Likes)}
	}
	ln.pending--
	if ln.pending == 0 {
		ln.display = ln.settled
	} else {
		ln.display = ln.settled.toward(ln.display.Liked)
	}
	return toggleOutcome{display: ln.display, settled: ln.settled, pending: ln.pending > 0}
}

func (l *ledger) beginCommentOp(id string) *lane {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln := l.laneLocked(id)
	ln.commentOps++
	return ln
}

// abandonCommentOp ends an operation whose response was discarded. It touches
// only the lane the operation began on, which a reset may have dropped.
func (l *ledger) abandonCommentOp(ln *lane) {
	l.mu.Lock()
	ln.commentOps = max(0, ln.commentOps-1)
	l.mu.Unlock()
}

// commentOps reports how many comment operations on id are unsettled
func (l *ledger) commentOps(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ln, ok := l.lanes[id]; ok {
		return ln.commentOps
	}
	return 0
}

// finishCommentOp applies delta to the comment counter, floored at 0
func (l *ledger) finishCommentOp(id string, delta int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln := l.laneLocked(id)
	ln.commentOps--
	ln.comments = max(0, ln.comments+delta)
	return ln.comments
}

func (l *ledger) reset() {
	l.mu.Lock()
	l.lanes = make(map[string]*lane)
	l.mu.Unlock()
}
