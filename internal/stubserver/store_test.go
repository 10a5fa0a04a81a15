package stubserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/vaultfeed/pkg/feed"
)

func TestStore_ConcurrentTogglesKeepCountConsistent(t *testing.T) {
	s := NewStore()
	p := s.AddPost(feed.Post{CreatorID: "c", Visibility: feed.TierPublic})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "u" + string(rune('A'+i%10))
			_, _, err := s.ToggleLike(user, p.ID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// each of 10 users toggled 5 times: all end liked
	posts, _, err := s.ListPosts("", "c", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 10, posts[0].Likes)
}

func TestStore_UnlikeNeverGoesNegative(t *testing.T) {
	s := NewStore()
	p := s.AddPost(feed.Post{CreatorID: "c", Likes: 0})
	s.likes[p.ID] = map[string]bool{"u": true}

	liked, likes, err := s.ToggleLike("u", p.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Zero(t, likes)
}

func TestStore_AddPostKeepsNewestFirst(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.AddPost(feed.Post{ID: "old", CreatorID: "c", CreatedAt: base})
	s.AddPost(feed.Post{ID: "new", CreatorID: "c", CreatedAt: base.Add(time.Hour)})
	s.AddPost(feed.Post{ID: "other", CreatorID: "d", CreatedAt: base.Add(2 * time.Hour)})

	posts, next, err := s.ListPosts("", "c", 10, "")
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].ID)
	assert.Equal(t, []string{"c", "d"}, s.Creators())
}

func TestStore_CommentWindow(t *testing.T) {
	s := NewStore()
	p := s.AddPost(feed.Post{CreatorID: "c"})
	for i := 0; i < 5; i++ {
		_, err := s.AddComment("u", p.ID, "hi")
		require.NoError(t, err)
	}

	cs, total, err := s.ListComments(p.ID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, cs, 1)

	cs, _, err = s.ListComments(p.ID, 2, 99)
	require.NoError(t, err)
	assert.Empty(t, cs)

	_, _, err = s.ListComments("ghost", 2, 0)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestTokenIssuer_RoundTripAndExpiry(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Hour)
	tok, exp, err := issuer.Issue("alice", "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = NewTokenIssuer([]byte("other-key"), time.Hour).Parse(tok)
	assert.Error(t, err, "wrong key")

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Parse(tok)
	assert.Error(t, err, "expired")

	_, _, err = issuer.Issue("", "")
	assert.Error(t, err)
}

func TestSeed_CreatesWellKnownAccounts(t *testing.T) {
	s := NewStore()
	Seed(s, SeedOptions{Posts: 30, Creators: 2, MaxComments: 3, Seed: 42})

	creators := s.Creators()
	assert.Len(t, creators, 2)
	assert.Contains(t, creators, DemoCreatorID)

	_, ok := s.User(SubscriberID)
	assert.True(t, ok)
	assert.True(t, s.Entitlements(SubscriberID, DemoCreatorID).Subscribed)
	assert.False(t, s.Entitlements(FollowerID, DemoCreatorID).Subscribed)

	posts, _, err := s.ListPosts(DemoCreatorID, DemoCreatorID, 50, "")
	require.NoError(t, err)
	assert.Len(t, posts, 15)
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt), "newest first")
	}
	for _, p := range posts {
		assert.NotEmpty(t, p.Content, "owner sees everything")
		cs, total, err := s.ListComments(p.ID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, total, p.Comments)
		assert.Len(t, cs, total)
	}
}
