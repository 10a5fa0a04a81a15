package feed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	vferrors "github.com/zfogg/vaultfeed/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxCommentLength bounds comment text, in runes, after trimming
const DefaultMaxCommentLength = 2000

// EngagementMutator applies likes and comments to the loaded feed and
// reconciles them with the server.
type EngagementMutator struct {
	likes    LikeSource
	comments CommentSource
	posts    *PageCursorStore
	threads  *CommentThreadStore
	ledger   *ledger
	viewer   func() Viewer
	bus      *Bus
	life     *lifecycle
	metrics  Metrics
	tracer   trace.Tracer
	log      *log.Logger
	loginURL string
	maxLen   int
}

// ToggleLike flips the like on a loaded post immediately and reconciles with
// the server. Toggles on one post run in call order; each starts from what
// the previous one displayed. The returned snapshot is the server-confirmed
// state once this toggle settles; on failure that is the state before it.
func (m *EngagementMutator) ToggleLike(ctx context.Context, postID string) (LikeSnapshot, error) {
	ctx, span := m.tracer.Start(ctx, "feed.ToggleLike", trace.WithAttributes(attribute.String("post.id", postID)))
	defer span.End()

	gen, err := m.life.begin()
	if err != nil {
		return LikeSnapshot{}, err
	}
	if _, ok := m.posts.Post(postID); !ok {
		return LikeSnapshot{}, fmt.Errorf("toggle like %s: %w", postID, ErrUnknownPost)
	}
	if !m.viewer().IsAuthenticated {
		snap, _ := m.ledger.like(postID)
		return snap, m.requireAuth(postID, "Log in to like posts")
	}

	ln, intent, optimistic := m.ledger.beginToggle(postID)
	m.publishLike(postID, optimistic, true)

	select {
	case ln.sem <- struct{}{}:
	case <-ctx.Done():
		return m.failToggle(span, gen, ln, postID, ctx.Err())
	}
	defer func() { <-ln.sem }()

	if m.ledger.alreadySettled(ln, intent) {
		if !m.life.valid(gen) {
			return LikeSnapshot{}, ErrDetached
		}
		out := m.ledger.finishToggle(ln, nil)
		m.metrics.LikeReconciled(OutcomeSkipped)
		m.publishLike(postID, out.display, out.pending)
		return out.settled, nil
	}

	start := time.Now()
	res, err := m.likes.ToggleLike(ctx, postID)
	m.metrics.ObserveRequest("toggle_like", outcomeOf(err), time.Since(start))
	if err != nil {
		return m.failToggle(span, gen, ln, postID, err)
	}
	if !m.life.valid(gen) {
		m.metrics.LikeReconciled(OutcomeDetached)
		return LikeSnapshot{}, ErrDetached
	}

	out := m.ledger.finishToggle(ln, &res)
	m.metrics.LikeReconciled(OutcomeOK)
	m.publishLike(postID, out.display, out.pending)
	m.log.Debug("Like confirmed", "post", postID, "liked", res.Liked, "likes", res.Likes)
	return out.settled, nil
}

func (m *EngagementMutator) failToggle(span trace.Span, gen uint64, ln *lane, postID string, cause error) (LikeSnapshot, error) {
	if !m.life.valid(gen) {
		m.metrics.LikeReconciled(OutcomeDetached)
		return LikeSnapshot{}, ErrDetached
	}
	out := m.ledger.finishToggle(ln, nil)
	m.metrics.LikeReconciled(OutcomeRollback)
	m.publishLike(postID, out.display, out.pending)

	err := vferrors.Categorize(cause)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	m.log.Warn("Like toggle rolled back", "post", postID, "error", cause)
	return out.settled, err
}

// SubmitComment validates and posts a comment. The text is kept as the
// post's draft until the server accepts it. Nothing is inserted before the
// server confirms.
func (m *EngagementMutator) SubmitComment(ctx context.Context, postID, text string) (Comment, error) {
	ctx, span := m.tracer.Start(ctx, "feed.SubmitComment", trace.WithAttributes(attribute.String("post.id", postID)))
	defer span.End()

	gen, err := m.life.begin()
	if err != nil {
		return Comment{}, err
	}
	if _, ok := m.posts.Post(postID); !ok {
		return Comment{}, fmt.Errorf("submit comment on %s: %w", postID, ErrUnknownPost)
	}

	m.threads.SetDraft(postID, text)

	if !m.viewer().IsAuthenticated {
		return Comment{}, m.requireAuth(postID, "Log in to comment")
	}

	content := strings.TrimSpace(text)
	if content == "" {
		return Comment{}, vferrors.ValidationError("content", "comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > m.maxLen {
		return Comment{}, vferrors.ValidationError("content", fmt.Sprintf("comment cannot exceed %d characters", m.maxLen))
	}

	ln := m.ledger.beginCommentOp(postID)
	start := time.Now()
	c, err := m.comments.CreateComment(ctx, postID, content)
	m.metrics.ObserveRequest("create_comment", outcomeOf(err), time.Since(start))
	if !m.life.valid(gen) {
		m.ledger.abandonCommentOp(ln)
		return Comment{}, ErrDetached
	}
	if err != nil {
		m.ledger.finishCommentOp(postID, 0)
		catErr := vferrors.Categorize(err)
		span.RecordError(catErr)
		span.SetStatus(codes.Error, catErr.Message)
		m.log.Warn("Comment not posted", "post", postID, "error", err)
		return Comment{}, catErr
	}

	if c.PostID == "" {
		c.PostID = postID
	}
	m.threads.prepend(postID, c)
	count := m.ledger.finishCommentOp(postID, 1)
	m.bus.Publish(Event{Kind: EventCommentAdded, PostID: postID, Comment: &c, Comments: count})
	return c, nil
}

// RemoveComment deletes a comment after the viewer confirms. Only the
// comment's author or the post's owner may remove it.
func (m *EngagementMutator) RemoveComment(ctx context.Context, postID, commentID string, confirm Confirmer) error {
	ctx, span := m.tracer.Start(ctx, "feed.RemoveComment", trace.WithAttributes(
		attribute.String("post.id", postID),
		attribute.String("comment.id", commentID),
	))
	defer span.End()

	gen, err := m.life.begin()
	if err != nil {
		return err
	}
	post, ok := m.posts.Post(postID)
	if !ok {
		return fmt.Errorf("remove comment on %s: %w", postID, ErrUnknownPost)
	}

	v := m.viewer()
	if !v.IsAuthenticated {
		return m.requireAuth(postID, "Log in to delete comments")
	}

	postOwner := v.IsOwner || v.UserID == post.CreatorID
	c, known := m.threads.find(postID, commentID)
	if !known {
		// without the comment the author is unknown; only the owner may proceed
		if !postOwner {
			return vferrors.NotFoundError("Comment", commentID)
		}
		c = Comment{ID: commentID, PostID: postID}
	}
	if !postOwner && c.Author.ID != v.UserID {
		return vferrors.ForbiddenError("Only the author or the post owner can delete this comment")
	}

	if confirm == nil || !confirm(ctx, c) {
		return ErrNotConfirmed
	}

	ln := m.ledger.beginCommentOp(postID)
	start := time.Now()
	err = m.comments.DeleteComment(ctx, commentID)
	m.metrics.ObserveRequest("delete_comment", outcomeOf(err), time.Since(start))
	if !m.life.valid(gen) {
		m.ledger.abandonCommentOp(ln)
		return ErrDetached
	}
	if err != nil {
		m.ledger.finishCommentOp(postID, 0)
		catErr := vferrors.Categorize(err)
		span.RecordError(catErr)
		span.SetStatus(codes.Error, catErr.Message)
		m.log.Warn("Comment not deleted", "post", postID, "comment", commentID, "error", err)
		return catErr
	}

	m.threads.remove(postID, commentID)
	count := m.ledger.finishCommentOp(postID, -1)
	m.bus.Publish(Event{Kind: EventCommentRemoved, PostID: postID, CommentID: commentID, Comments: count})
	return nil
}

func (m *EngagementMutator) requireAuth(postID, msg string) error {
	m.bus.Publish(Event{Kind: EventAuthRequired, PostID: postID, LoginURL: m.loginURL})
	return vferrors.UnauthorizedError(msg)
}

func (m *EngagementMutator) publishLike(postID string, snap LikeSnapshot, pending bool) {
	m.bus.Publish(Event{Kind: EventLikeChanged, PostID: postID, Like: snap, Pending: pending})
}
