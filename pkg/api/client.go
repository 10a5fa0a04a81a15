package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
	"github.com/zfogg/vaultfeed/pkg/feed"
	"github.com/zfogg/vaultfeed/pkg/logger"
)

// Client talks to the content API on behalf of one feed instance
type Client struct {
	http *resty.Client
}

var _ feed.Backend = (*Client)(nil)

// New wraps a configured resty client
func New(c *resty.Client) *Client {
	return &Client{http: c}
}

// ListPosts fetches one page of a creator's posts, newest first
func (c *Client) ListPosts(ctx context.Context, creatorID string, limit int, cursor string) (feed.Page, error) {
	logger.Debug("Listing posts", "creator", creatorID, "limit", limit, "cursor", cursor)

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("creatorId", creatorID).
		SetQueryParam("limit", strconv.Itoa(limit))
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}

	var out PostListResponse
	if err := do(req, http.MethodGet, "/posts", &out); err != nil {
		return feed.Page{}, err
	}

	page := feed.Page{Posts: out.Posts, HasMore: out.HasMore}
	if out.NextCursor != nil {
		page.NextCursor = *out.NextCursor
	}
	return page, nil
}

// LikeStatusBatch asks whether the caller liked each post, in one request
func (c *Client) LikeStatusBatch(ctx context.Context, postIDs []string) (map[string]bool, error) {
	if len(postIDs) == 0 {
		return map[string]bool{}, nil
	}
	logger.Debug("Fetching like status", "count", len(postIDs))

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("postIds", strings.Join(postIDs, ","))

	out := make(map[string]bool, len(postIDs))
	if err := do(req, http.MethodGet, "/posts/like-status/batch", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleLike flips the caller's like and returns the server's count
func (c *Client) ToggleLike(ctx context.Context, postID string) (feed.LikeResult, error) {
	logger.Debug("Toggling like", "post", postID)

	var out LikeResponse
	if err := do(c.http.R().SetContext(ctx), http.MethodPost, "/posts/"+url.PathEscape(postID)+"/like", &out); err != nil {
		return feed.LikeResult{}, err
	}
	return feed.LikeResult{Liked: out.Liked, Likes: out.Likes}, nil
}

// ListComments fetches a window of a post's comments, newest first
func (c *Client) ListComments(ctx context.Context, postID string, limit, offset int) (feed.CommentPage, error) {
	logger.Debug("Listing comments", "post", postID, "limit", limit, "offset", offset)

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("offset", strconv.Itoa(offset))

	var out CommentsListResponse
	if err := do(req, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", &out); err != nil {
		return feed.CommentPage{}, err
	}
	return feed.CommentPage{Comments: out.Comments, Total: out.Total}, nil
}

// CreateComment posts a comment and returns it as stored
func (c *Client) CreateComment(ctx context.Context, postID, content string) (feed.Comment, error) {
	logger.Debug("Creating comment", "post", postID)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(CreateCommentRequest{Content: content})

	var out feed.Comment
	if err := do(req, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", &out); err != nil {
		return feed.Comment{}, err
	}
	return out, nil
}

// DeleteComment removes a comment
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	logger.Debug("Deleting comment", "comment", commentID)
	return do(c.http.R().SetContext(ctx), http.MethodDelete, "/posts/comments/"+url.PathEscape(commentID), nil)
}

// Entitlements fetches the caller's subscription and purchases for a creator
func (c *Client) Entitlements(ctx context.Context, creatorID string) (feed.Entitlements, error) {
	logger.Debug("Fetching entitlements", "creator", creatorID)

	var out EntitlementsResponse
	if err := do(c.http.R().SetContext(ctx), http.MethodGet, "/creators/"+url.PathEscape(creatorID)+"/entitlements", &out); err != nil {
		return feed.Entitlements{}, err
	}
	return feed.Entitlements{Subscribed: out.Subscribed, UnlockedPostIDs: out.UnlockedPostIDs}, nil
}

// do executes req and decodes a successful body into target, if any
func do(req *resty.Request, method, path string, target interface{}) error {
	resp, err := req.Execute(method, path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	if target == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
