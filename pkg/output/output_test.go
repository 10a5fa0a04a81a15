package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/vaultfeed/pkg/feed"
)

func init() {
	color.NoColor = true
}

func sampleViews() []feed.PostView {
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	return []feed.PostView{
		{
			ID: "p1", CreatorID: "c", Visibility: feed.TierPublic, Access: feed.Access{Visible: true},
			Title: "Behind the scenes", Content: []feed.ContentBlock{{Kind: feed.MediaVideo, URL: "https://cdn.test/v.mp4"}},
			Liked: true, Likes: 12, Comments: 3, Views: 40, CreatedAt: at,
		},
		{
			ID: "p2", CreatorID: "c", Visibility: feed.TierPPV, Access: feed.Access{Lock: feed.LockPurchase},
			Likes: 7, LikePending: true, CreatedAt: at,
		},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for format, valid := range map[string]bool{"json": true, "text": true, "table": true, "yaml": false} {
		assert.Equal(t, valid, ValidateOutputFormat(format), format)
	}
}

func TestFeed_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText).Feed(sampleViews(), true))
	out := buf.String()

	assert.Contains(t, out, "1. Behind the scenes")
	assert.Contains(t, out, "https://cdn.test/v.mp4")
	assert.Contains(t, out, "♥ 12")
	assert.Contains(t, out, "Purchase to unlock this post")
	assert.Contains(t, out, "♡ 7…", "pending toggles are marked")
	assert.Contains(t, out, "More posts available")
}

func TestFeed_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatJSON).Feed(sampleViews(), false))

	var got struct {
		Posts   []map[string]interface{} `json:"posts"`
		HasMore bool                     `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Posts, 2)
	assert.False(t, got.HasMore)
	assert.Equal(t, "Behind the scenes", got.Posts[0]["title"])
	assert.Equal(t, true, got.Posts[1]["locked"])
	assert.Equal(t, "purchase", got.Posts[1]["lock"])
	assert.NotContains(t, got.Posts[1], "title")
	assert.NotContains(t, got.Posts[1], "content")
}

func TestFeed_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatTable).Feed(sampleViews(), false))
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "[Purchase to unlock this post]")
	assert.Contains(t, out, "7…")
}

func TestComments(t *testing.T) {
	cs := []feed.Comment{{
		ID: "c1", PostID: "p1", Content: "so good",
		Author: feed.Author{ID: "u1", DisplayName: "Una", Username: "una"},
	}}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText).Comments("p1", cs, true))
	assert.Contains(t, buf.String(), "Una @una")
	assert.Contains(t, buf.String(), "so good")
	assert.Contains(t, buf.String(), "More comments available")

	buf.Reset()
	require.NoError(t, New(&buf, FormatText).Comments("p1", nil, false))
	assert.Contains(t, buf.String(), "No comments yet")

	buf.Reset()
	require.NoError(t, New(&buf, FormatJSON).Comments("p1", cs, false))
	assert.Contains(t, buf.String(), `"author": "una"`)
}

func TestLikeAndEvents(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, FormatText)

	require.NoError(t, p.Like("p1", feed.LikeSnapshot{Liked: true, Count: 4}))
	p.Event(feed.Event{Kind: feed.EventLikeChanged, PostID: "p1", Like: feed.LikeSnapshot{Count: 3}, Pending: true})
	p.Event(feed.Event{Kind: feed.EventAuthRequired, LoginURL: "https://vault.test/login"})
	p.Event(feed.Event{Kind: feed.EventWarning, Err: errors.New("like status unavailable")})

	out := buf.String()
	assert.Contains(t, out, "♥ Liked p1 (4 likes)")
	assert.Contains(t, out, "… unliked p1 (3)")
	assert.Contains(t, out, "https://vault.test/login")
	assert.Contains(t, out, "like status unavailable")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncate("éééééé", 4))
}
