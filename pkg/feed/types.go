package feed

import (
	"context"
	"time"
)

// Tier is a post's visibility tier. Each tier has its own predicate over the
// viewer; there is no ordering between them.
type Tier string

const (
	TierPublic        Tier = "public"
	TierAuthenticated Tier = "authenticated"
	TierSubscribers   Tier = "subscribers"
	TierPPV           Tier = "ppv"
)

// MediaKind is the kind of a content block
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// ContentBlock is one media item of a post
type ContentBlock struct {
	Kind         MediaKind `json:"kind"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// Post is a feed item as returned by the feed source
type Post struct {
	ID          string         `json:"id"`
	CreatorID   string         `json:"creatorId"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Content     []ContentBlock `json:"content"`
	Visibility  Tier           `json:"visibility"`
	Likes       int            `json:"likes"`
	Comments    int            `json:"comments"`
	Views       int            `json:"views"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Author is the public profile attached to a comment
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatarUrl"`
}

// Comment is a plain-text comment on a post
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is one page of posts. An empty NextCursor means the feed is exhausted.
type Page struct {
	Posts      []Post
	NextCursor string
	HasMore    bool
}

// LikeResult is the server's authoritative like state after a toggle
type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// CommentPage is one offset page of a post's comments
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

// Entitlements are the billing collaborator's view of a viewer for one creator
type Entitlements struct {
	Subscribed      bool     `json:"subscribed"`
	UnlockedPostIDs []string `json:"unlockedPostIds"`
}

// PostSource fetches pages of a creator's feed
type PostSource interface {
	ListPosts(ctx context.Context, creatorID string, limit int, cursor string) (Page, error)
}

// LikeSource reads and toggles the viewer's likes
type LikeSource interface {
	LikeStatusBatch(ctx context.Context, postIDs []string) (map[string]bool, error)
	ToggleLike(ctx context.Context, postID string) (LikeResult, error)
}

// CommentSource reads and mutates comment threads
type CommentSource interface {
	ListComments(ctx context.Context, postID string, limit, offset int) (CommentPage, error)
	CreateComment(ctx context.Context, postID, content string) (Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

// EntitlementSource reports subscription and pay-per-view unlock state
type EntitlementSource interface {
	Entitlements(ctx context.Context, creatorID string) (Entitlements, error)
}

// Backend is everything a controller consumes over the network
type Backend interface {
	PostSource
	LikeSource
	CommentSource
	EntitlementSource
}

// Session tells the engine whether a bearer token is available and whose it
// is. The token itself is never inspected.
type Session interface {
	Token() string
	Subject() string
}

// EntitlementCache holds serialized entitlements. Any Get error is a miss.
type EntitlementCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Confirmer asks the viewer to confirm a comment removal
type Confirmer func(ctx context.Context, c Comment) bool
