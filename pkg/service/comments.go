package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zfogg/vaultfeed/pkg/feed"
	"github.com/zfogg/vaultfeed/pkg/logger"
	"github.com/zfogg/vaultfeed/pkg/prompter"
)

// CommentService lists, adds and removes comments on a creator's posts
type CommentService struct {
	env Env
}

// NewCommentService creates a new comment service
func NewCommentService(env Env) *CommentService {
	return &CommentService{env: env}
}

// open mounts the creator's feed and scrolls to postID
func (cs *CommentService) open(ctx context.Context, creatorID, postID string) (*mounted, error) {
	m, err := mount(ctx, cs.env, creatorID, feed.EventWarning, feed.EventAuthRequired)
	if err != nil {
		return nil, err
	}
	if _, err := m.locate(ctx, postID); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// List prints a post's thread, fetching up to pages comment pages
func (cs *CommentService) List(ctx context.Context, creatorID, postID string, pages int) error {
	logger.Debug("Listing comments", "creator", creatorID, "post", postID, "pages", pages)

	m, err := cs.open(ctx, creatorID, postID)
	if err != nil {
		return err
	}
	defer m.Close()

	if _, err := m.Comments(ctx, postID); err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}
	for i := 1; i < pages && m.HasMoreComments(postID); i++ {
		if _, err := m.LoadMoreComments(ctx, postID); err != nil {
			return fmt.Errorf("failed to fetch more comments: %w", err)
		}
	}
	comments, err := m.Comments(ctx, postID)
	if err != nil {
		return err
	}

	m.flush(cs.env.Printer)
	return cs.env.Printer.Comments(postID, comments, m.HasMoreComments(postID))
}

// Add posts a comment and prints it as the server stored it
func (cs *CommentService) Add(ctx context.Context, creatorID, postID, text string) error {
	logger.Debug("Adding comment", "creator", creatorID, "post", postID)

	m, err := cs.open(ctx, creatorID, postID)
	if err != nil {
		return err
	}
	defer m.Close()

	c, err := m.SubmitComment(ctx, postID, text)
	m.flush(cs.env.Printer)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	cs.env.Printer.Success("✓ Comment posted")
	return cs.env.Printer.Comment(c)
}

// Delete removes a comment. Without yes the user is asked first.
func (cs *CommentService) Delete(ctx context.Context, creatorID, postID, commentID string, yes bool) error {
	logger.Debug("Deleting comment", "creator", creatorID, "post", postID, "comment", commentID)

	m, err := cs.open(ctx, creatorID, postID)
	if err != nil {
		return err
	}
	defer m.Close()

	// the author is only known once the comment is loaded
	if _, err := m.Comments(ctx, postID); err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}
	for m.HasMoreComments(postID) && !threadHas(ctx, m, postID, commentID) {
		more, err := m.LoadMoreComments(ctx, postID)
		if err != nil {
			return fmt.Errorf("failed to fetch more comments: %w", err)
		}
		if len(more) == 0 {
			break
		}
	}

	confirm := feed.Confirmer(prompter.AlwaysConfirm)
	if !yes {
		confirm = cs.env.Prompter.ConfirmDeletion()
	}

	err = m.RemoveComment(ctx, postID, commentID, confirm)
	m.flush(cs.env.Printer)
	if errors.Is(err, feed.ErrNotConfirmed) {
		cs.env.Printer.Info("Deletion cancelled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	cs.env.Printer.Success("✓ Comment deleted")
	return nil
}

func threadHas(ctx context.Context, m *mounted, postID, commentID string) bool {
	comments, err := m.Comments(ctx, postID)
	if err != nil {
		return false
	}
	for _, c := range comments {
		if c.ID == commentID {
			return true
		}
	}
	return false
}
