package stubserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/vaultfeed/pkg/feed"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrForbidden       = errors.New("forbidden")
)

// Store is the in-memory state behind the stub API. It is safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	users    map[string]feed.Author
	posts    []*feed.Post // newest first
	byID     map[string]*feed.Post
	likes    map[string]map[string]bool // post -> user
	comments map[string][]feed.Comment  // post -> newest first
	subs     map[string]map[string]bool // creator -> user
	bought   map[string]map[string]bool // user -> post
	now      func() time.Time
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		users:    make(map[string]feed.Author),
		byID:     make(map[string]*feed.Post),
		likes:    make(map[string]map[string]bool),
		comments: make(map[string][]feed.Comment),
		subs:     make(map[string]map[string]bool),
		bought:   make(map[string]map[string]bool),
		now:      time.Now,
	}
}

// AddUser registers an account; creators are users too
func (s *Store) AddUser(a feed.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[a.ID] = a
}

// User looks up an account
func (s *Store) User(id string) (feed.Author, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users[id]
	return a, ok
}

// AddPost inserts a post keeping newest-first order. A missing id or
// timestamp is filled in.
func (s *Store) AddPost(p feed.Post) feed.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	cp := p
	s.posts = append(s.posts, &cp)
	s.byID[cp.ID] = &cp
	sort.SliceStable(s.posts, func(i, j int) bool {
		return s.posts[i].CreatedAt.After(s.posts[j].CreatedAt)
	})
	return cp
}

// Subscribe makes userID a subscriber of creatorID
func (s *Store) Subscribe(userID, creatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[creatorID] == nil {
		s.subs[creatorID] = make(map[string]bool)
	}
	s.subs[creatorID][userID] = true
}

// Purchase unlocks a pay-per-view post for userID
func (s *Store) Purchase(userID, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bought[userID] == nil {
		s.bought[userID] = make(map[string]bool)
	}
	s.bought[userID][postID] = true
}

// Creators returns the ids of every account that has posts
func (s *Store) Creators() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.posts {
		if !seen[p.CreatorID] {
			seen[p.CreatorID] = true
			out = append(out, p.CreatorID)
		}
	}
	sort.Strings(out)
	return out
}

// viewerLocked builds what userID may see of creatorID's posts. s.mu is held.
func (s *Store) viewerLocked(userID, creatorID string) feed.Viewer {
	if userID == "" {
		return feed.Viewer{}
	}
	v := feed.Viewer{
		UserID:          userID,
		IsAuthenticated: true,
		IsOwner:         userID == creatorID,
		IsSubscriber:    s.subs[creatorID][userID],
	}
	if b := s.bought[userID]; len(b) > 0 {
		v.Unlocked = make(map[string]bool, len(b))
		for id := range b {
			v.Unlocked[id] = true
		}
	}
	return v
}

// ListPosts returns up to limit of creatorID's posts after cursor. The
// cursor is the id of the last post of the previous page. Locked posts keep
// their metadata but lose their content.
func (s *Store) ListPosts(userID, creatorID string, limit int, cursor string) ([]feed.Post, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mine []*feed.Post
	for _, p := range s.posts {
		if p.CreatorID == creatorID {
			mine = append(mine, p)
		}
	}

	start := 0
	if cursor != "" {
		start = -1
		for i, p := range mine {
			if p.ID == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", ErrInvalidCursor
		}
	}

	end := min(start+limit, len(mine))
	viewer := s.viewerLocked(userID, creatorID)
	out := make([]feed.Post, 0, end-start)
	for _, p := range mine[start:end] {
		cp := *p
		if !feed.Evaluate(cp, viewer).Visible {
			cp.Title, cp.Description, cp.Content = "", "", nil
		}
		out = append(out, cp)
	}

	next := ""
	if end < len(mine) {
		next = mine[end-1].ID
	}
	return out, next, nil
}

// LikeStatus reports userID's like on each known post
func (s *Store) LikeStatus(userID string, postIDs []string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		id = strings.TrimSpace(id)
		if _, ok := s.byID[id]; ok {
			out[id] = s.likes[id][userID]
		}
	}
	return out
}

// ToggleLike flips userID's like and returns the new state and count
func (s *Store) ToggleLike(userID, postID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return false, 0, ErrPostNotFound
	}
	if s.likes[postID] == nil {
		s.likes[postID] = make(map[string]bool)
	}
	liked := !s.likes[postID][userID]
	if liked {
		s.likes[postID][userID] = true
		p.Likes++
	} else {
		delete(s.likes[postID], userID)
		p.Likes = max(0, p.Likes-1)
	}
	return liked, p.Likes, nil
}

// ListComments returns a window of a post's comments, newest first, and the
// total count.
func (s *Store) ListComments(postID string, limit, offset int) ([]feed.Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[postID]; !ok {
		return nil, 0, ErrPostNotFound
	}
	all := s.comments[postID]
	start := min(max(offset, 0), len(all))
	end := min(start+limit, len(all))
	return append([]feed.Comment(nil), all[start:end]...), len(all), nil
}

// AddComment stores a comment by userID as the newest on the post
func (s *Store) AddComment(userID, postID, content string) (feed.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return feed.Comment{}, ErrPostNotFound
	}
	author, ok := s.users[userID]
	if !ok {
		author = feed.Author{ID: userID, Username: userID, DisplayName: userID}
	}
	c := feed.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Author:    author,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	s.comments[postID] = append([]feed.Comment{c}, s.comments[postID]...)
	p.Comments++
	return c, nil
}

// DeleteComment removes a comment. Only its author or the post's creator
// may do so.
func (s *Store) DeleteComment(userID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for postID, cs := range s.comments {
		for i, c := range cs {
			if c.ID != commentID {
				continue
			}
			p := s.byID[postID]
			if c.Author.ID != userID && p.CreatorID != userID {
				return ErrForbidden
			}
			s.comments[postID] = append(cs[:i:i], cs[i+1:]...)
			p.Comments = max(0, p.Comments-1)
			return nil
		}
	}
	return ErrCommentNotFound
}

// Entitlements reports userID's subscription and purchases for creatorID
func (s *Store) Entitlements(userID, creatorID string) feed.Entitlements {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent := feed.Entitlements{UnlockedPostIDs: []string{}}
	if userID == "" {
		return ent
	}
	ent.Subscribed = s.subs[creatorID][userID]
	for id := range s.bought[userID] {
		if p, ok := s.byID[id]; ok && p.CreatorID == creatorID {
			ent.UnlockedPostIDs = append(ent.UnlockedPostIDs, id)
		}
	}
	sort.Strings(ent.UnlockedPostIDs)
	return ent
}
