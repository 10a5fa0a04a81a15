package feed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// PageCursorStore owns the ordered, duplicate-free list of loaded posts and
// the cursor to resume from.
type PageCursorStore struct {
	source PostSource
	limit  int
	life   *lifecycle
	group  singleflight.Group

	mu          sync.Mutex
	creatorID   string
	posts       []Post
	index       map[string]int
	cursor      string
	hasMore     bool
	initialized bool
	seq         uint64
}

// NewPageCursorStore creates a store for one creator's feed
func NewPageCursorStore(source PostSource, creatorID string, limit int) *PageCursorStore {
	return newPageCursorStore(source, creatorID, limit, newLifecycle())
}

func newPageCursorStore(source PostSource, creatorID string, limit int, life *lifecycle) *PageCursorStore {
	if limit <= 0 {
		limit = 10
	}
	return &PageCursorStore{
		source:    source,
		creatorID: creatorID,
		limit:     limit,
		life:      life,
		index:     make(map[string]int),
	}
}

// LoadFirstPage replaces the store's contents with the first page
func (s *PageCursorStore) LoadFirstPage(ctx context.Context) (Page, error) {
	gen, err := s.life.begin()
	if err != nil {
		return Page{}, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	creatorID := s.creatorID
	s.mu.Unlock()

	page, err := s.source.ListPosts(ctx, creatorID, s.limit, "")
	if err != nil {
		return Page{}, fmt.Errorf("load first page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq || !s.life.valid(gen) {
		return Page{}, ErrDetached
	}

	s.posts = nil
	s.index = make(map[string]int, len(page.Posts))
	added := s.appendLocked(page.Posts)
	s.cursor = page.NextCursor
	s.hasMore = page.NextCursor != ""
	s.initialized = true

	return Page{Posts: added, NextCursor: s.cursor, HasMore: s.hasMore}, nil
}

// LoadNextPage appends the next page. It returns an empty page without a
// request when the feed is exhausted or was never loaded. Concurrent calls
// share one request and one append.
func (s *PageCursorStore) LoadNextPage(ctx context.Context) (Page, error) {
	v, err, _ := s.group.Do("next", func() (interface{}, error) {
		return s.loadNext(ctx)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

func (s *PageCursorStore) loadNext(ctx context.Context) (Page, error) {
	gen, err := s.life.begin()
	if err != nil {
		return Page{}, err
	}

	s.mu.Lock()
	if !s.initialized || !s.hasMore {
		s.mu.Unlock()
		return Page{}, nil
	}
	seq, cursor, creatorID := s.seq, s.cursor, s.creatorID
	s.mu.Unlock()

	page, err := s.source.ListPosts(ctx, creatorID, s.limit, cursor)
	if err != nil {
		return Page{}, fmt.Errorf("load next page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq || !s.life.valid(gen) {
		return Page{}, ErrDetached
	}

	added := s.appendLocked(page.Posts)
	s.cursor = page.NextCursor
	s.hasMore = page.NextCursor != ""

	return Page{Posts: added, NextCursor: s.cursor, HasMore: s.hasMore}, nil
}

// appendLocked adds posts not already present and returns those it added
func (s *PageCursorStore) appendLocked(posts []Post) []Post {
	added := make([]Post, 0, len(posts))
	for _, p := range posts {
		if _, dup := s.index[p.ID]; dup {
			continue
		}
		s.index[p.ID] = len(s.posts)
		s.posts = append(s.posts, p)
		added = append(added, p)
	}
	return added
}

// Posts returns a copy of the loaded posts in feed order
func (s *PageCursorStore) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Post(nil), s.posts...)
}

// Post looks up a loaded post
func (s *PageCursorStore) Post(id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return Post{}, false
	}
	return s.posts[i], true
}

// HasMore reports whether another page can be loaded
func (s *PageCursorStore) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && s.hasMore
}

// Len returns the number of loaded posts
func (s *PageCursorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// Reset empties the store and points it at creatorID. Responses still in
// flight are discarded.
func (s *PageCursorStore) Reset(creatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.creatorID = creatorID
	s.posts = nil
	s.index = make(map[string]int)
	s.cursor = ""
	s.hasMore = false
	s.initialized = false
}
