package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeSnapshot_Toward(t *testing.T) {
	assert.Equal(t, LikeSnapshot{Liked: true, Count: 6}, LikeSnapshot{Count: 5}.toward(true))
	assert.Equal(t, LikeSnapshot{Count: 4}, LikeSnapshot{Liked: true, Count: 5}.toward(false))
	assert.Equal(t, LikeSnapshot{Count: 0}, LikeSnapshot{Liked: true, Count: 0}.toward(false), "floored at zero")
	assert.Equal(t, LikeSnapshot{Liked: true, Count: 3}, LikeSnapshot{Liked: true, Count: 3}.toward(true))
}

func TestLedger_LoadDoesNotClobberPendingToggle(t *testing.T) {
	l := newLedger()
	l.observePosts([]Post{{ID: "p1", Likes: 5, Comments: 1}})

	_, _, optimistic := l.beginToggle("p1")
	assert.Equal(t, LikeSnapshot{Liked: true, Count: 6}, optimistic)

	l.observePosts([]Post{{ID: "p1", Likes: 40, Comments: 7}})
	l.observeLiked(map[string]bool{"p1": false})

	v := l.view("p1")
	assert.Equal(t, LikeSnapshot{Liked: true, Count: 6}, v.like)
	assert.True(t, v.pending)
	assert.Equal(t, 7, v.comments, "comment counter has nothing in flight")
}

func TestLedger_LoadDoesNotClobberPendingComment(t *testing.T) {
	l := newLedger()
	l.observePosts([]Post{{ID: "p1", Comments: 1}})
	l.beginCommentOp("p1")
	l.observePosts([]Post{{ID: "p1", Comments: 9}})

	assert.Equal(t, 2, l.finishCommentOp("p1", 1))
}

func TestLedger_FinishToggleRestoresSettled(t *testing.T) {
	l := newLedger()
	l.observePosts([]Post{{ID: "p1", Likes: 5}})

	ln, _, _ := l.beginToggle("p1")
	out := l.finishToggle(ln, nil)

	assert.Equal(t, LikeSnapshot{Count: 5}, out.display)
	assert.Equal(t, out.settled, out.display)
	assert.False(t, out.pending)
}

func TestLedger_ProjectsQueuedIntentOntoServerCount(t *testing.T) {
	l := newLedger()
	l.observePosts([]Post{{ID: "p1", Likes: 5}})

	first, _, _ := l.beginToggle("p1") // like
	l.beginToggle("p1")                // unlike, queued

	// another viewer liked meanwhile: server says 7
	out := l.finishToggle(first, &LikeResult{Liked: true, Likes: 7})
	assert.True(t, out.pending)
	assert.Equal(t, LikeSnapshot{Liked: true, Count: 7}, out.settled)
	assert.Equal(t, LikeSnapshot{Liked: false, Count: 6}, out.display)
}

func TestLedger_ResetDropsLanes(t *testing.T) {
	l := newLedger()
	l.observePosts([]Post{{ID: "p1", Likes: 5}})
	l.reset()

	_, ok := l.like("p1")
	assert.False(t, ok)
}
