package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/zfogg/vaultfeed/pkg/feed"

// Options configures a Controller. Backend and CreatorID are required.
type Options struct {
	CreatorID string
	Backend   Backend
	Session   Session

	// Cache holds entitlements for this controller only. Nil disables caching.
	Cache EntitlementCache

	PageSize         int
	CommentPageSize  int
	MaxCommentLength int
	LoginURL         string
	EventBuffer      int

	Logger  *log.Logger
	Metrics Metrics
	Tracer  trace.Tracer
}

// Controller is one mounted feed. It exclusively owns its posts, like
// ledger, comment threads and event bus; two controllers never share state.
type Controller struct {
	backend Backend
	log     *log.Logger
	metrics Metrics
	tracer  trace.Tracer
	life    *lifecycle
	bus     *Bus
	ledger  *ledger
	more    singleflight.Group

	store    *PageCursorStore
	resolver *BatchStatusResolver
	threads  *CommentThreadStore
	mutator  *EngagementMutator
	viewers  *viewerResolver

	eventBuffer int

	mu        sync.RWMutex
	creatorID string
	viewer    Viewer
}

// New builds a controller. Nothing is fetched until Load.
func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("feed: backend is required")
	}
	if opts.CreatorID == "" {
		return nil, errors.New("feed: creator id is required")
	}

	lg := opts.Logger
	if lg == nil {
		lg = log.New(io.Discard)
	}
	m := opts.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	maxLen := opts.MaxCommentLength
	if maxLen <= 0 {
		maxLen = DefaultMaxCommentLength
	}

	c := &Controller{
		backend:   opts.Backend,
		log:       lg.WithPrefix("feed"),
		metrics:   m,
		tracer:    tracer,
		life:      newLifecycle(),
		bus:       NewBus(),
		ledger:    newLedger(),
		creatorID: opts.CreatorID,

		eventBuffer: opts.EventBuffer,
	}
	c.bus.onDrop = func(k EventKind) { m.EventDropped(string(k)) }

	c.store = newPageCursorStore(opts.Backend, opts.CreatorID, opts.PageSize, c.life)
	c.resolver = NewBatchStatusResolver(opts.Backend)
	c.threads = newCommentThreadStore(opts.Backend, opts.CommentPageSize, c.life)
	c.viewers = &viewerResolver{
		session: opts.Session,
		source:  opts.Backend,
		cache:   opts.Cache,
		log:     c.log,
	}
	c.mutator = &EngagementMutator{
		likes:    opts.Backend,
		comments: opts.Backend,
		posts:    c.store,
		threads:  c.threads,
		ledger:   c.ledger,
		viewer:   c.Viewer,
		bus:      c.bus,
		life:     c.life,
		metrics:  m,
		tracer:   tracer,
		log:      c.log,
		loginURL: opts.LoginURL,
		maxLen:   maxLen,
	}
	return c, nil
}

// Load resolves the viewer and the first page concurrently, then resolves
// like status for the whole page in one batch.
func (c *Controller) Load(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "feed.Load")
	defer span.End()

	gen, err := c.life.begin()
	if err != nil {
		return err
	}
	creatorID := c.CreatorID()
	span.SetAttributes(attribute.String("creator.id", creatorID))

	var (
		viewer    Viewer
		viewerErr error
		page      Page
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		viewer, viewerErr = c.viewers.resolve(gctx, creatorID)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		page, err = c.store.LoadFirstPage(gctx)
		c.metrics.ObserveRequest("list_posts", outcomeOf(err), time.Since(start))
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("Feed load failed", "creator", creatorID, "error", err)
		return err
	}

	if !c.life.commit(gen, func() {
		if viewerErr != nil {
			c.warn("Could not resolve subscription state", viewerErr)
		}
		c.setViewer(viewer)
	}) {
		return ErrDetached
	}

	return c.commitPage(ctx, gen, page, viewer)
}

// LoadMore appends the next page. Concurrent calls share one page request
// and one batch resolution. An exhausted feed returns an empty page.
func (c *Controller) LoadMore(ctx context.Context) (Page, error) {
	v, err, _ := c.more.Do("more", func() (interface{}, error) {
		ctx, span := c.tracer.Start(ctx, "feed.LoadMore")
		defer span.End()

		gen, err := c.life.begin()
		if err != nil {
			return Page{}, err
		}
		viewer := c.Viewer()

		start := time.Now()
		page, err := c.store.LoadNextPage(ctx)
		if err != nil {
			c.metrics.ObserveRequest("list_posts", outcomeOf(err), time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.log.Warn("Next page failed", "error", err)
			return Page{}, err
		}
		if len(page.Posts) == 0 {
			return page, nil
		}
		c.metrics.ObserveRequest("list_posts", OutcomeOK, time.Since(start))
		if err := c.commitPage(ctx, gen, page, viewer); err != nil {
			return Page{}, err
		}
		return page, nil
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// commitPage records a fetched page and its like status, both only while gen
// is the current generation
func (c *Controller) commitPage(ctx context.Context, gen uint64, page Page, viewer Viewer) error {
	ids := postIDs(page.Posts)
	if !c.life.commit(gen, func() {
		c.ledger.observePosts(page.Posts)
		c.metrics.PostsLoaded(len(ids))
	}) {
		return ErrDetached
	}

	start := time.Now()
	statuses, err := c.resolver.Resolve(ctx, ids, viewer)
	if viewer.IsAuthenticated && len(ids) > 0 {
		c.metrics.ObserveRequest("like_status_batch", outcomeOf(err), time.Since(start))
	}
	if !c.life.commit(gen, func() {
		if err != nil {
			c.warn("Like status unavailable for this page", err)
		}
		c.ledger.observeLiked(statuses)
		c.bus.Publish(Event{Kind: EventPageLoaded, PostIDs: ids})
	}) {
		return ErrDetached
	}
	return nil
}

func (c *Controller) warn(msg string, err error) {
	c.log.Warn(msg, "error", err)
	c.bus.Publish(Event{Kind: EventWarning, Err: err})
}

// View returns the ordered view model of every loaded post
func (c *Controller) View() []PostView {
	viewer := c.Viewer()
	posts := c.store.Posts()
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		pv := newPostView(p, Evaluate(p, viewer), c.ledger.view(p.ID))
		pv.Expanded = c.threads.Expanded(p.ID)
		out = append(out, pv)
	}
	return out
}

// Post returns the view of a single loaded post
func (c *Controller) Post(postID string) (PostView, bool) {
	p, ok := c.store.Post(postID)
	if !ok {
		return PostView{}, false
	}
	pv := newPostView(p, Evaluate(p, c.Viewer()), c.ledger.view(postID))
	pv.Expanded = c.threads.Expanded(postID)
	return pv, true
}

// HasMore reports whether LoadMore can append anything
func (c *Controller) HasMore() bool {
	return c.store.HasMore()
}

// Viewer returns the viewer resolved by the last Load or RevalidateViewer
func (c *Controller) Viewer() Viewer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewer
}

func (c *Controller) setViewer(v Viewer) {
	c.mu.Lock()
	c.viewer = v
	c.mu.Unlock()
}

// CreatorID returns the creator whose feed is mounted
func (c *Controller) CreatorID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creatorID
}

// RevalidateViewer drops cached entitlements and resolves the viewer again,
// e.g. after the viewer subscribed or purchased a post.
func (c *Controller) RevalidateViewer(ctx context.Context) (Viewer, error) {
	gen, err := c.life.begin()
	if err != nil {
		return Viewer{}, err
	}
	creatorID := c.CreatorID()
	c.viewers.invalidate(ctx, creatorID)

	v, err := c.viewers.resolve(ctx, creatorID)
	if !c.life.commit(gen, func() {
		if err != nil {
			c.warn("Could not resolve subscription state", err)
		}
		c.setViewer(v)
		c.bus.Publish(Event{Kind: EventViewerChanged, Viewer: v})
	}) {
		return Viewer{}, ErrDetached
	}
	return v, err
}

// SetCreator discards all state, including responses still in flight, and
// loads the feed of another creator.
func (c *Controller) SetCreator(ctx context.Context, creatorID string) error {
	if creatorID == "" {
		return errors.New("feed: creator id is required")
	}
	if err := c.life.advance(func() {
		c.mu.Lock()
		c.creatorID = creatorID
		c.viewer = Viewer{}
		c.mu.Unlock()
	}); err != nil {
		return err
	}
	c.store.Reset(creatorID)
	c.ledger.reset()
	c.threads.reset()

	c.log.Info("Feed subject changed", "creator", creatorID)
	return c.Load(ctx)
}

// Close detaches the controller. Responses that arrive later are discarded,
// operations fail with ErrDetached and every subscription channel is closed.
func (c *Controller) Close() {
	c.life.close()
	c.bus.Close()
}

// Subscribe registers for events; see Bus.Subscribe. A non-positive buffer
// uses Options.EventBuffer.
func (c *Controller) Subscribe(buffer int, kinds ...EventKind) *Subscription {
	if buffer <= 0 {
		buffer = c.eventBuffer
	}
	return c.bus.Subscribe(buffer, kinds...)
}

// ToggleLike delegates to the mutator
func (c *Controller) ToggleLike(ctx context.Context, postID string) (LikeSnapshot, error) {
	return c.mutator.ToggleLike(ctx, postID)
}

// SubmitComment delegates to the mutator
func (c *Controller) SubmitComment(ctx context.Context, postID, text string) (Comment, error) {
	return c.mutator.SubmitComment(ctx, postID, text)
}

// RemoveComment delegates to the mutator
func (c *Controller) RemoveComment(ctx context.Context, postID, commentID string, confirm Confirmer) error {
	return c.mutator.RemoveComment(ctx, postID, commentID, confirm)
}

// ToggleComments flips a post's thread open or closed. Opening a thread the
// first time fetches it.
func (c *Controller) ToggleComments(ctx context.Context, postID string) (bool, []Comment, error) {
	if _, ok := c.store.Post(postID); !ok {
		return false, nil, fmt.Errorf("toggle comments on %s: %w", postID, ErrUnknownPost)
	}
	expanded := c.threads.ToggleVisibility(postID)
	if !expanded {
		return false, nil, nil
	}
	cs, err := c.Comments(ctx, postID)
	return true, cs, err
}

// Comments returns a post's thread, fetching it on first use
func (c *Controller) Comments(ctx context.Context, postID string) ([]Comment, error) {
	start := time.Now()
	loaded := c.threads.Loaded(postID)
	cs, err := c.threads.EnsureLoaded(ctx, postID)
	if !loaded {
		c.metrics.ObserveRequest("list_comments", outcomeOf(err), time.Since(start))
	}
	return cs, err
}

// LoadMoreComments appends the next page of a post's thread
func (c *Controller) LoadMoreComments(ctx context.Context, postID string) ([]Comment, error) {
	return c.threads.LoadMore(ctx, postID)
}

// HasMoreComments reports whether a loaded thread can grow
func (c *Controller) HasMoreComments(postID string) bool {
	return c.threads.HasMore(postID)
}

// SetDraft stores unsent comment text for a post
func (c *Controller) SetDraft(postID, text string) {
	c.threads.SetDraft(postID, text)
}

// Draft returns the unsent comment text for a post
func (c *Controller) Draft(postID string) string {
	return c.threads.Draft(postID)
}

func postIDs(posts []Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
