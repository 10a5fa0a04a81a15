package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/vaultfeed/pkg/feed"
)

var _ feed.Metrics = (*Metrics)(nil)

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("toggle_like", feed.OutcomeOK, 20*time.Millisecond)
	m.ObserveRequest("toggle_like", feed.OutcomeError, time.Second)
	m.ObserveRequest("list_posts", feed.OutcomeOK, time.Millisecond)
	m.LikeReconciled(feed.OutcomeRollback)
	m.EventDropped(string(feed.EventLikeChanged))
	m.EventDropped(string(feed.EventLikeChanged))
	m.PostsLoaded(10)
	m.PostsLoaded(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedRequestsTotal.WithLabelValues("toggle_like", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedRequestsTotal.WithLabelValues("toggle_like", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LikeReconciliations.WithLabelValues("rolled_back")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsDroppedTotal.WithLabelValues("like_changed")))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.PostsLoadedTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.FeedRequestDuration))
}

func TestNew_SeparateRegistriesDoNotCollide(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())

	a.PostsLoaded(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PostsLoadedTotal))
	assert.Zero(t, testutil.ToFloat64(b.PostsLoadedTotal))

	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "double registration on one registry")
}

func TestHandler_ExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.PostsLoaded(4)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "feed_posts_loaded_total 4")
}
