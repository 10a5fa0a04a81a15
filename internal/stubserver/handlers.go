package stubserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vaultfeed/pkg/feed"
	"go.uber.org/zap"
)

const (
	defaultPostLimit    = 10
	maxPostLimit        = 50
	defaultCommentLimit = 20
	maxCommentLimit     = 100
	maxBatchIDs         = 100
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type postListResponse struct {
	Posts      []feed.Post `json:"posts"`
	NextCursor *string     `json:"nextCursor"`
	HasMore    bool        `json:"hasMore"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

func respondError(c *gin.Context, status int, code, message, field string) {
	c.JSON(status, ErrorResponse{Code: code, Message: message, Field: field})
}

func queryInt(c *gin.Context, key string, def, maxVal int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, http.StatusBadRequest, "invalid_parameter", key+" must be a non-negative integer", key)
		return 0, false
	}
	if maxVal > 0 && n > maxVal {
		n = maxVal
	}
	return n, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "vaultfeed-stub"})
}

func (s *Server) login(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "request a dev token with `vaultfeed stub token <user>`, then run `vaultfeed auth login`",
	})
}

func (s *Server) listPosts(c *gin.Context) {
	creatorID := c.Query("creatorId")
	if creatorID == "" {
		respondError(c, http.StatusBadRequest, "missing_parameter", "creatorId is required", "creatorId")
		return
	}
	limit, ok := queryInt(c, "limit", defaultPostLimit, maxPostLimit)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultPostLimit
	}

	posts, next, err := s.store.ListPosts(c.GetString(ctxUserID), creatorID, limit, c.Query("cursor"))
	if errors.Is(err, ErrInvalidCursor) {
		respondError(c, http.StatusBadRequest, "invalid_cursor", "cursor does not belong to this feed", "cursor")
		return
	}

	resp := postListResponse{Posts: posts, HasMore: next != ""}
	if next != "" {
		resp.NextCursor = &next
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) likeStatusBatch(c *gin.Context) {
	var ids []string
	for _, id := range strings.Split(c.Query("postIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		respondError(c, http.StatusBadRequest, "missing_parameter", "postIds is required", "postIds")
		return
	}
	if len(ids) > maxBatchIDs {
		respondError(c, http.StatusBadRequest, "too_many_ids", "at most "+strconv.Itoa(maxBatchIDs)+" post ids per request", "postIds")
		return
	}
	c.JSON(http.StatusOK, s.store.LikeStatus(c.GetString(ctxUserID), ids))
}

func (s *Server) toggleLike(c *gin.Context) {
	liked, likes, err := s.store.ToggleLike(c.GetString(ctxUserID), c.Param("id"))
	if errors.Is(err, ErrPostNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "post not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": likes})
}

func (s *Server) listComments(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultCommentLimit, maxCommentLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0, 0)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultCommentLimit
	}

	comments, total, err := s.store.ListComments(c.Param("id"), limit, offset)
	if errors.Is(err, ErrPostNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "post not found", "")
		return
	}
	if comments == nil {
		comments = []feed.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "total": total})
}

func (s *Server) createComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "request body must be JSON", "")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "comment cannot be empty", "content")
		return
	}
	if utf8.RuneCountInString(content) > s.maxCommentLength {
		respondError(c, http.StatusBadRequest, "validation_error", "comment is too long", "content")
		return
	}

	comment, err := s.store.AddComment(c.GetString(ctxUserID), c.Param("id"), content)
	if errors.Is(err, ErrPostNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "post not found", "")
		return
	}
	s.log.Debug("Comment created", zap.String("post_id", comment.PostID), zap.String("comment_id", comment.ID))
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) deleteComment(c *gin.Context) {
	err := s.store.DeleteComment(c.GetString(ctxUserID), c.Param("id"))
	switch {
	case errors.Is(err, ErrCommentNotFound):
		respondError(c, http.StatusNotFound, "not_found", "comment not found", "")
	case errors.Is(err, ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden", "only the author or the post owner can delete this comment", "")
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) entitlements(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Entitlements(c.GetString(ctxUserID), c.Param("id")))
}
