package feed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

type thread struct {
	loaded   bool
	expanded bool
	comments []Comment
	total    int
	draft    string

	// confirmed inserts and removals that land while the first page is in
	// flight, replayed onto that page when it commits
	loading bool
	added   []Comment
	removed map[string]bool
}

// settleFirstPage installs the first page and replays the writes recorded
// while it was loading. An insert missing from the page postdates it; a
// removal found on the page postdates it too.
func (t *thread) settleFirstPage(page CommentPage) {
	onPage := make(map[string]bool, len(page.Comments))
	for _, c := range page.Comments {
		onPage[c.ID] = true
	}

	total := page.Total
	comments := make([]Comment, 0, len(t.added)+len(page.Comments))
	for i := len(t.added) - 1; i >= 0; i-- {
		if !onPage[t.added[i].ID] {
			total++
		}
		comments = append(comments, t.added[i])
	}
	for _, c := range page.Comments {
		if t.removed[c.ID] {
			total--
			continue
		}
		comments = append(comments, c)
	}

	t.comments = dedupeComments(nil, comments)
	t.total = max(total, len(t.comments))
	t.loaded = true
	t.clearPending()
}

func (t *thread) clearPending() {
	t.loading = false
	t.added = nil
	t.removed = nil
}

// CommentThreadStore keeps per-post comment threads. A thread is fetched the
// first time something asks for it and never again until reset.
type CommentThreadStore struct {
	source CommentSource
	limit  int
	life   *lifecycle
	group  singleflight.Group

	mu      sync.Mutex
	threads map[string]*thread
}

// NewCommentThreadStore creates a store fetching limit comments per page
func NewCommentThreadStore(source CommentSource, limit int) *CommentThreadStore {
	return newCommentThreadStore(source, limit, newLifecycle())
}

func newCommentThreadStore(source CommentSource, limit int, life *lifecycle) *CommentThreadStore {
	if limit <= 0 {
		limit = 20
	}
	return &CommentThreadStore{
		source:  source,
		limit:   limit,
		life:    life,
		threads: make(map[string]*thread),
	}
}

func (s *CommentThreadStore) threadLocked(postID string) *thread {
	t, ok := s.threads[postID]
	if !ok {
		t = &thread{}
		s.threads[postID] = t
	}
	return t
}

// EnsureLoaded returns the thread, fetching its first page only if it has
// not been fetched yet. Concurrent first calls share one request.
func (s *CommentThreadStore) EnsureLoaded(ctx context.Context, postID string) ([]Comment, error) {
	if cs, ok := s.loadedComments(postID); ok {
		return cs, nil
	}

	_, err, _ := s.group.Do("load:"+postID, func() (interface{}, error) {
		if _, ok := s.loadedComments(postID); ok {
			return nil, nil
		}
		gen, err := s.life.begin()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		t := s.threadLocked(postID)
		t.loading = true
		s.mu.Unlock()

		page, err := s.source.ListComments(ctx, postID, s.limit, 0)

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.life.valid(gen) {
			return nil, ErrDetached
		}
		if err != nil {
			t.clearPending()
			return nil, fmt.Errorf("load comments for %s: %w", postID, err)
		}
		t.settleFirstPage(page)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	cs, _ := s.loadedComments(postID)
	return cs, nil
}

// LoadMore fetches the next offset page of a loaded thread and returns the
// comments it appended.
func (s *CommentThreadStore) LoadMore(ctx context.Context, postID string) ([]Comment, error) {
	if _, ok := s.loadedComments(postID); !ok {
		return s.EnsureLoaded(ctx, postID)
	}

	v, err, _ := s.group.Do("more:"+postID, func() (interface{}, error) {
		gen, err := s.life.begin()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		t := s.threadLocked(postID)
		offset, total := len(t.comments), t.total
		s.mu.Unlock()
		if offset >= total {
			return []Comment(nil), nil
		}

		page, err := s.source.ListComments(ctx, postID, s.limit, offset)
		if err != nil {
			return nil, fmt.Errorf("load more comments for %s: %w", postID, err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.life.valid(gen) {
			return nil, ErrDetached
		}
		before := len(t.comments)
		t.comments = dedupeComments(t.comments, page.Comments)
		t.total = max(page.Total, len(t.comments))
		return append([]Comment(nil), t.comments[before:]...), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Comment), nil
}

// HasMore reports whether a loaded thread has comments left on the server
func (s *CommentThreadStore) HasMore(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[postID]
	return ok && t.loaded && len(t.comments) < t.total
}

// ToggleVisibility flips whether the thread is shown and returns the new
// state. It never fetches.
func (s *CommentThreadStore) ToggleVisibility(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threadLocked(postID)
	t.expanded = !t.expanded
	return t.expanded
}

// Expanded reports whether the thread is shown
func (s *CommentThreadStore) Expanded(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[postID]
	return ok && t.expanded
}

// Loaded reports whether the thread has been fetched
func (s *CommentThreadStore) Loaded(postID string) bool {
	_, ok := s.loadedComments(postID)
	return ok
}

// Comments returns a copy of a loaded thread, or nil
func (s *CommentThreadStore) Comments(postID string) []Comment {
	cs, _ := s.loadedComments(postID)
	return cs
}

// SetDraft stores the unsent comment text for a post
func (s *CommentThreadStore) SetDraft(postID, text string) {
	s.mu.Lock()
	s.threadLocked(postID).draft = text
	s.mu.Unlock()
}

// Draft returns the unsent comment text for a post
func (s *CommentThreadStore) Draft(postID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[postID]; ok {
		return t.draft
	}
	return ""
}

func (s *CommentThreadStore) loadedComments(postID string) ([]Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[postID]
	if !ok || !t.loaded {
		return nil, false
	}
	return append([]Comment(nil), t.comments...), true
}

func (s *CommentThreadStore) find(postID, commentID string) (Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[postID]
	if !ok {
		return Comment{}, false
	}
	for _, c := range t.comments {
		if c.ID == commentID {
			return c, true
		}
	}
	return Comment{}, false
}

// prepend adds a confirmed comment to the front of a loaded thread and
// clears the draft. A thread whose first page is in flight gets the comment
// when that page commits; other unloaded threads only lose their draft.
func (s *CommentThreadStore) prepend(postID string, c Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threadLocked(postID)
	t.draft = ""
	if !t.loaded {
		if t.loading && !containsComment(t.added, c.ID) {
			t.added = append(t.added, c)
		}
		return
	}
	if containsComment(t.comments, c.ID) {
		return
	}
	t.comments = append([]Comment{c}, t.comments...)
	t.total++
}

func (s *CommentThreadStore) remove(postID, commentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[postID]
	if !ok {
		return
	}
	if !t.loaded {
		if !t.loading {
			return
		}
		if t.removed == nil {
			t.removed = make(map[string]bool)
		}
		t.removed[commentID] = true
		for i, c := range t.added {
			if c.ID == commentID {
				t.added = append(t.added[:i:i], t.added[i+1:]...)
				break
			}
		}
		return
	}
	for i, c := range t.comments {
		if c.ID == commentID {
			t.comments = append(t.comments[:i:i], t.comments[i+1:]...)
			t.total = max(0, t.total-1)
			return
		}
	}
}

func (s *CommentThreadStore) reset() {
	s.mu.Lock()
	s.threads = make(map[string]*thread)
	s.mu.Unlock()
}

func containsComment(cs []Comment, id string) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

func dedupeComments(into, more []Comment) []Comment {
	seen := make(map[string]bool, len(into)+len(more))
	for _, c := range into {
		seen[c.ID] = true
	}
	for _, c := range more {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		into = append(into, c)
	}
	return into
}
