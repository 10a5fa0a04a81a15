package feed

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

const (
	testCreator = "creator-1"
	testUser    = "user-1"
)

type testSession struct {
	token string
	user  string
}

func (s testSession) Token() string   { return s.token }
func (s testSession) Subject() string { return s.user }

func authed(user string) Session { return testSession{token: "tok-" + user, user: user} }

// fakeBackend is an in-memory Backend with call counters, error injection
// and optional gates that hold a request until the test releases it.
type fakeBackend struct {
	mu           sync.Mutex
	posts        []Post
	liked        map[string]bool
	comments     map[string][]Comment
	entitlements Entitlements
	entFor       map[string]Entitlements
	author       Author
	nextComment  int
	omit         map[string]bool
	batchArgs    [][]string

	listCalls    atomic.Int32
	batchCalls   atomic.Int32
	toggleCalls  atomic.Int32
	commentLists atomic.Int32
	createCalls  atomic.Int32
	deleteCalls  atomic.Int32
	entCalls     atomic.Int32

	listErr    error
	batchErr   error
	createErr  error
	deleteErr  error
	entErr     error
	toggleHook func(call int) error

	listGate       chan struct{}
	toggleGate     chan struct{}
	commentGate    chan struct{}
	createGate     chan struct{}
	toggleStarted  chan string
	listStarted    chan struct{}
	commentStarted chan struct{}
	createStarted  chan struct{}

	// entGate holds entitlement lookups for entGateCreator only
	entGate        chan struct{}
	entGateCreator string
	entStarted     chan string
}

func newFakeBackend(n int) *fakeBackend {
	fb := &fakeBackend{
		liked:    make(map[string]bool),
		comments: make(map[string][]Comment),
		author:   Author{ID: testUser, DisplayName: "User One", Username: "user1"},
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		fb.posts = append(fb.posts, Post{
			ID:          fmt.Sprintf("p%d", i),
			CreatorID:   testCreator,
			Title:       fmt.Sprintf("Post %d", i),
			Description: "desc",
			Content:     []ContentBlock{{Kind: MediaImage, URL: fmt.Sprintf("https://cdn.test/p%d.jpg", i), ThumbnailURL: "https://cdn.test/t.jpg"}},
			Visibility:  TierPublic,
			Likes:       5,
			Comments:    0,
			Views:       100,
			CreatedAt:   base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return fb
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (fb *fakeBackend) post(id string) *Post {
	for i := range fb.posts {
		if fb.posts[i].ID == id {
			return &fb.posts[i]
		}
	}
	return nil
}

func (fb *fakeBackend) ListPosts(ctx context.Context, creatorID string, limit int, cursor string) (Page, error) {
	fb.listCalls.Add(1)
	if fb.listStarted != nil {
		fb.listStarted <- struct{}{}
	}
	if err := wait(ctx, fb.listGate); err != nil {
		return Page{}, err
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.listErr != nil {
		return Page{}, fb.listErr
	}

	var mine []Post
	for _, p := range fb.posts {
		if p.CreatorID == creatorID {
			mine = append(mine, p)
		}
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, "c"))
		if err != nil {
			return Page{}, err
		}
		start = n
	}
	end := min(start+limit, len(mine))
	page := Page{Posts: append([]Post(nil), mine[start:end]...)}
	if end < len(mine) {
		page.NextCursor = fmt.Sprintf("c%d", end)
		page.HasMore = true
	}
	return page, nil
}

func (fb *fakeBackend) LikeStatusBatch(_ context.Context, postIDs []string) (map[string]bool, error) {
	fb.batchCalls.Add(1)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.batchArgs = append(fb.batchArgs, append([]string(nil), postIDs...))
	if fb.batchErr != nil {
		return nil, fb.batchErr
	}
	out := make(map[string]bool)
	for _, id := range postIDs {
		if fb.omit[id] || fb.post(id) == nil {
			continue
		}
		out[id] = fb.liked[id]
	}
	return out, nil
}

func (fb *fakeBackend) ToggleLike(ctx context.Context, postID string) (LikeResult, error) {
	call := int(fb.toggleCalls.Add(1))
	if fb.toggleStarted != nil {
		fb.toggleStarted <- postID
	}
	if err := wait(ctx, fb.toggleGate); err != nil {
		return LikeResult{}, err
	}
	if fb.toggleHook != nil {
		if err := fb.toggleHook(call); err != nil {
			return LikeResult{}, err
		}
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	p := fb.post(postID)
	if p == nil {
		return LikeResult{}, fmt.Errorf("post %s not found", postID)
	}
	fb.liked[postID] = !fb.liked[postID]
	if fb.liked[postID] {
		p.Likes++
	} else {
		p.Likes = max(0, p.Likes-1)
	}
	return LikeResult{Liked: fb.liked[postID], Likes: p.Likes}, nil
}

func (fb *fakeBackend) ListComments(ctx context.Context, postID string, limit, offset int) (CommentPage, error) {
	fb.commentLists.Add(1)

	// the response reflects the server when the request arrived
	fb.mu.Lock()
	all := fb.comments[postID]
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	page := CommentPage{Comments: append([]Comment(nil), all[start:end]...), Total: len(all)}
	fb.mu.Unlock()

	if fb.commentStarted != nil {
		fb.commentStarted <- struct{}{}
	}
	if err := wait(ctx, fb.commentGate); err != nil {
		return CommentPage{}, err
	}
	return page, nil
}

func (fb *fakeBackend) CreateComment(ctx context.Context, postID, content string) (Comment, error) {
	fb.createCalls.Add(1)
	if fb.createStarted != nil {
		fb.createStarted <- struct{}{}
	}
	if err := wait(ctx, fb.createGate); err != nil {
		return Comment{}, err
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.createErr != nil {
		return Comment{}, fb.createErr
	}
	fb.nextComment++
	c := Comment{
		ID:        fmt.Sprintf("c%d", fb.nextComment),
		PostID:    postID,
		Author:    fb.author,
		Content:   content,
		CreatedAt: time.Now(),
	}
	fb.comments[postID] = append([]Comment{c}, fb.comments[postID]...)
	if p := fb.post(postID); p != nil {
		p.Comments++
	}
	return c, nil
}

func (fb *fakeBackend) DeleteComment(_ context.Context, commentID string) error {
	fb.deleteCalls.Add(1)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.deleteErr != nil {
		return fb.deleteErr
	}
	for postID, cs := range fb.comments {
		for i, c := range cs {
			if c.ID == commentID {
				fb.comments[postID] = append(cs[:i:i], cs[i+1:]...)
				if p := fb.post(postID); p != nil {
					p.Comments = max(0, p.Comments-1)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("comment %s not found", commentID)
}

func (fb *fakeBackend) Entitlements(ctx context.Context, creatorID string) (Entitlements, error) {
	fb.entCalls.Add(1)
	if fb.entGate != nil && creatorID == fb.entGateCreator {
		if fb.entStarted != nil {
			fb.entStarted <- creatorID
		}
		if err := wait(ctx, fb.entGate); err != nil {
			return Entitlements{}, err
		}
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.entErr != nil {
		return Entitlements{}, fb.entErr
	}
	if ent, ok := fb.entFor[creatorID]; ok {
		return ent, nil
	}
	return fb.entitlements, nil
}

// seedComments adds count comments by author to a post on the server side
func (fb *fakeBackend) seedComments(postID string, count int, author Author) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := 0; i < count; i++ {
		fb.nextComment++
		fb.comments[postID] = append(fb.comments[postID], Comment{
			ID:      fmt.Sprintf("c%d", fb.nextComment),
			PostID:  postID,
			Author:  author,
			Content: fmt.Sprintf("comment %d", fb.nextComment),
		})
	}
	if p := fb.post(postID); p != nil {
		p.Comments = len(fb.comments[postID])
	}
}

func newTestController(t *testing.T, fb *fakeBackend, session Session, mods ...func(*Options)) *Controller {
	t.Helper()
	opts := Options{
		CreatorID:       testCreator,
		Backend:         fb,
		Session:         session,
		Cache:           newMapCache(),
		PageSize:        3,
		CommentPageSize: 2,
		LoginURL:        "https://vault.test/login",
		Logger:          log.New(io.Discard),
	}
	for _, m := range mods {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// mapCache is a trivial EntitlementCache
type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if !ok {
		return nil, fmt.Errorf("miss")
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func ids(posts []Post) []string {
	return postIDs(posts)
}

// drain collects buffered events without blocking
func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func kindsOf(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
