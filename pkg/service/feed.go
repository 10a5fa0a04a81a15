package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zfogg/vaultfeed/pkg/feed"
	"github.com/zfogg/vaultfeed/pkg/logger"
	"github.com/zfogg/vaultfeed/pkg/output"
)

// maxLocatePages bounds how far a command scrolls looking for a post id
const maxLocatePages = 20

// FeedService renders creator feeds and toggles likes
type FeedService struct {
	env Env
}

// NewFeedService creates a new feed service
func NewFeedService(env Env) *FeedService {
	return &FeedService{env: env}
}

// mounted is one controller plus the subscription that reports its
// warnings back to the user
type mounted struct {
	*feed.Controller
	events *feed.Subscription
}

// mount builds a controller for creatorID and loads its first page
func mount(ctx context.Context, env Env, creatorID string, kinds ...feed.EventKind) (*mounted, error) {
	c, err := feed.New(env.options(creatorID))
	if err != nil {
		return nil, err
	}
	m := &mounted{Controller: c, events: c.Subscribe(0, kinds...)}
	if err := c.Load(ctx); err != nil {
		m.flush(env.Printer)
		c.Close()
		return nil, fmt.Errorf("failed to load feed for %s: %w", creatorID, err)
	}
	return m, nil
}

// flush prints every event queued so far without blocking
func (m *mounted) flush(p *output.Printer) {
	for {
		select {
		case e, ok := <-m.events.Events():
			if !ok {
				return
			}
			p.Event(e)
		default:
			return
		}
	}
}

// locate scrolls until postID is loaded or the feed is exhausted
func (m *mounted) locate(ctx context.Context, postID string) (feed.PostView, error) {
	for i := 0; ; i++ {
		if pv, ok := m.Post(postID); ok {
			return pv, nil
		}
		if !m.HasMore() || i >= maxLocatePages {
			return feed.PostView{}, fmt.Errorf("post %s is not in %s's feed: %w", postID, m.CreatorID(), feed.ErrUnknownPost)
		}
		if _, err := m.LoadMore(ctx); err != nil {
			return feed.PostView{}, fmt.Errorf("failed to load more posts: %w", err)
		}
	}
}

// Show renders up to pages pages of a creator's feed
func (fs *FeedService) Show(ctx context.Context, creatorID string, pages int) error {
	logger.Debug("Showing feed", "creator", creatorID, "pages", pages)

	m, err := mount(ctx, fs.env, creatorID, feed.EventWarning)
	if err != nil {
		return err
	}
	defer m.Close()

	for i := 1; i < pages && m.HasMore(); i++ {
		if _, err := m.LoadMore(ctx); err != nil {
			m.flush(fs.env.Printer)
			return fmt.Errorf("failed to load more posts: %w", err)
		}
	}

	m.flush(fs.env.Printer)
	return fs.env.Printer.Feed(m.View(), m.HasMore())
}

// Like flips the viewer's like on one post and prints the settled state
func (fs *FeedService) Like(ctx context.Context, creatorID, postID string) error {
	logger.Debug("Toggling like", "creator", creatorID, "post", postID)

	m, err := mount(ctx, fs.env, creatorID, feed.EventWarning, feed.EventAuthRequired)
	if err != nil {
		return err
	}
	defer m.Close()

	if _, err := m.locate(ctx, postID); err != nil {
		return err
	}

	snap, err := m.ToggleLike(ctx, postID)
	m.flush(fs.env.Printer)
	if err != nil {
		if errors.Is(err, feed.ErrDetached) {
			return err
		}
		return fmt.Errorf("failed to toggle like: %w", err)
	}
	return fs.env.Printer.Like(postID, snap)
}
