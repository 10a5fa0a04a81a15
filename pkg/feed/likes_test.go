package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AnonymousSkipsRequest(t *testing.T) {
	fb := newFakeBackend(3)
	r := NewBatchStatusResolver(fb)

	got, err := r.Resolve(context.Background(), []string{"p1", "p2"}, anonymousViewer)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p1": false, "p2": false}, got)
	assert.Zero(t, fb.batchCalls.Load())
}

func TestResolve_EmptySetSkipsRequest(t *testing.T) {
	fb := newFakeBackend(3)
	r := NewBatchStatusResolver(fb)

	got, err := r.Resolve(context.Background(), nil, authedViewer)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, fb.batchCalls.Load())
}

func TestResolve_OneRequestForTheWholeSet(t *testing.T) {
	fb := newFakeBackend(4)
	fb.liked["p2"] = true
	fb.liked["p4"] = true
	r := NewBatchStatusResolver(fb)

	got, err := r.Resolve(context.Background(), []string{"p1", "p2", "p2", "p3", "p4"}, authedViewer)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fb.batchCalls.Load())
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, fb.batchArgs[0])
	assert.Equal(t, map[string]bool{"p1": false, "p2": true, "p3": false, "p4": true}, got)
}

func TestResolve_OmittedIDsAreFalse(t *testing.T) {
	fb := newFakeBackend(2)
	fb.liked["p1"] = true
	fb.omit = map[string]bool{"p1": true}
	r := NewBatchStatusResolver(fb)

	got, err := r.Resolve(context.Background(), []string{"p1", "p2", "ghost"}, authedViewer)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p1": false, "p2": false, "ghost": false}, got)
}

func TestResolve_FailureDegradesToNotLiked(t *testing.T) {
	fb := newFakeBackend(2)
	fb.liked["p1"] = true
	fb.batchErr = errors.New("503 service unavailable")
	r := NewBatchStatusResolver(fb)

	got, err := r.Resolve(context.Background(), []string{"p1", "p2"}, authedViewer)
	require.Error(t, err)
	assert.Equal(t, map[string]bool{"p1": false, "p2": false}, got)
}

func TestResolve_RepeatedCallsDoNotTouchUnrelatedIDs(t *testing.T) {
	fb := newFakeBackend(4)
	fb.liked["p4"] = true
	r := NewBatchStatusResolver(fb)
	l := newLedger()
	l.observePosts(fb.posts)

	for i := 0; i < 2; i++ {
		got, err := r.Resolve(context.Background(), []string{"p1", "p2"}, authedViewer)
		require.NoError(t, err)
		l.observeLiked(got)
	}
	l.observeLiked(map[string]bool{"p4": true})

	fb.liked["p1"] = true
	got, err := r.Resolve(context.Background(), []string{"p1"}, authedViewer)
	require.NoError(t, err)
	l.observeLiked(got)

	assert.Equal(t, int32(3), fb.batchCalls.Load())
	p1, _ := l.like("p1")
	p4, _ := l.like("p4")
	assert.True(t, p1.Liked)
	assert.True(t, p4.Liked, "p4 was not part of the later batches")
}
