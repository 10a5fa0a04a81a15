package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zfogg/vaultfeed/pkg/feed"
	"github.com/zfogg/vaultfeed/pkg/logger"
)

const browseHelp = `Commands:
  n, next                  load the next page
  p, print                 print the loaded feed
  l, like <post>           toggle like
  c, comments <post>       show or hide comments
  m, more <post>           load more comments
  a, add <post> <text>     add a comment
  d, delete <post> <id>    delete a comment
  r, refresh               re-check subscription state
  s, switch <creator>      browse another creator
  q, quit
<post> is a feed position (1, 2, ...) or a post id.`

// Browse runs an interactive session over one feed until the user quits or
// input ends.
func (fs *FeedService) Browse(ctx context.Context, creatorID string) error {
	logger.Debug("Browsing feed", "creator", creatorID)

	m, err := mount(ctx, fs.env, creatorID,
		feed.EventLikeChanged, feed.EventCommentAdded, feed.EventCommentRemoved,
		feed.EventViewerChanged, feed.EventWarning, feed.EventAuthRequired)
	if err != nil {
		return err
	}
	defer m.Close()

	p := fs.env.Printer
	m.flush(p)
	if err := p.Feed(m.View(), m.HasMore()); err != nil {
		return err
	}
	p.Info("Type 'h' for help")

	for {
		line, err := fs.env.Prompter.PromptString("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		quit, err := fs.browseCommand(ctx, m, line)
		m.flush(p)
		if err != nil {
			if errors.Is(err, feed.ErrDetached) {
				return nil
			}
			p.Error("%v", err)
		}
		if quit {
			return nil
		}
	}
}

func (fs *FeedService) browseCommand(ctx context.Context, m *mounted, line string) (bool, error) {
	p := fs.env.Printer
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "q", "quit", "exit":
		return true, nil

	case "h", "help", "?":
		p.Info("%s", browseHelp)

	case "n", "next":
		if !m.HasMore() {
			p.Info("No more posts")
			return false, nil
		}
		before := len(m.View())
		if _, err := m.LoadMore(ctx); err != nil {
			return false, fmt.Errorf("failed to load more posts: %w", err)
		}
		view := m.View()
		for i := before; i < len(view); i++ {
			if err := p.Post(view[i]); err != nil {
				return false, err
			}
		}
		if !m.HasMore() {
			p.Info("End of feed")
		}

	case "p", "print":
		return false, p.Feed(m.View(), m.HasMore())

	case "l", "like":
		postID, err := resolvePost(m, args)
		if err != nil {
			return false, err
		}
		snap, err := m.ToggleLike(ctx, postID)
		if err != nil {
			return false, err
		}
		return false, p.Like(postID, snap)

	case "c", "comments":
		postID, err := resolvePost(m, args)
		if err != nil {
			return false, err
		}
		open, comments, err := m.ToggleComments(ctx, postID)
		if err != nil {
			return false, err
		}
		if !open {
			p.Info("Comments hidden")
			return false, nil
		}
		return false, p.Comments(postID, comments, m.HasMoreComments(postID))

	case "m", "more":
		postID, err := resolvePost(m, args)
		if err != nil {
			return false, err
		}
		more, err := m.LoadMoreComments(ctx, postID)
		if err != nil {
			return false, err
		}
		return false, p.Comments(postID, more, m.HasMoreComments(postID))

	case "a", "add":
		postID, err := resolvePost(m, args)
		if err != nil {
			return false, err
		}
		text := strings.Join(args[1:], " ")
		if text == "" {
			text = m.Draft(postID)
		}
		c, err := m.SubmitComment(ctx, postID, text)
		if err != nil {
			return false, err
		}
		return false, p.Comment(c)

	case "d", "delete":
		postID, err := resolvePost(m, args)
		if err != nil {
			return false, err
		}
		if len(args) < 2 {
			return false, fmt.Errorf("usage: delete <post> <comment-id>")
		}
		if _, err := m.Comments(ctx, postID); err != nil {
			return false, err
		}
		err = m.RemoveComment(ctx, postID, args[1], fs.env.Prompter.ConfirmDeletion())
		if errors.Is(err, feed.ErrNotConfirmed) {
			p.Info("Deletion cancelled")
			return false, nil
		}
		return false, err

	case "r", "refresh":
		_, err := m.RevalidateViewer(ctx)
		if err != nil {
			return false, err
		}
		return false, p.Feed(m.View(), m.HasMore())

	case "s", "switch":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: switch <creator>")
		}
		if err := m.SetCreator(ctx, args[0]); err != nil {
			return false, fmt.Errorf("failed to load feed for %s: %w", args[0], err)
		}
		return false, p.Feed(m.View(), m.HasMore())

	default:
		return false, fmt.Errorf("unknown command %q (type 'h' for help)", cmd)
	}
	return false, nil
}

// resolvePost maps the first argument, a 1-based feed position or a post
// id, to a loaded post id
func resolvePost(m *mounted, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("a post position or id is required")
	}
	if n, err := strconv.Atoi(args[0]); err == nil {
		view := m.View()
		if n < 1 || n > len(view) {
			return "", fmt.Errorf("no post at position %d (1-%d loaded)", n, len(view))
		}
		return view[n-1].ID, nil
	}
	if _, ok := m.Post(args[0]); !ok {
		return "", fmt.Errorf("post %s is not loaded: %w", args[0], feed.ErrUnknownPost)
	}
	return args[0], nil
}
