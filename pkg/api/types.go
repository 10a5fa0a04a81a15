package api

import "github.com/zfogg/vaultfeed/pkg/feed"

// PostListResponse is the body of GET /posts
type PostListResponse struct {
	Posts      []feed.Post `json:"posts"`
	NextCursor *string     `json:"nextCursor"`
	HasMore    bool        `json:"hasMore"`
}

// LikeResponse is the body of POST /posts/{id}/like
type LikeResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// CommentsListResponse is the body of GET /posts/{id}/comments
type CommentsListResponse struct {
	Comments []feed.Comment `json:"comments"`
	Total    int            `json:"total"`
}

// CreateCommentRequest is the body of POST /posts/{id}/comments
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// EntitlementsResponse is the body of GET /creators/{id}/entitlements
type EntitlementsResponse struct {
	Subscribed      bool     `json:"subscribed"`
	UnlockedPostIDs []string `json:"unlockedPostIds"`
}

// ErrorResponse is the error body every endpoint returns on failure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
