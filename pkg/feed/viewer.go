package feed

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	json "github.com/json-iterator/go"
)

// Viewer is derived per feed load, never stored server-side
type Viewer struct {
	UserID          string
	IsOwner         bool
	IsAuthenticated bool
	IsSubscriber    bool
	Unlocked        map[string]bool
}

// HasUnlocked reports whether a pay-per-view post was purchased
func (v Viewer) HasUnlocked(postID string) bool {
	return v.Unlocked[postID]
}

// Anonymous reports whether no credential is available
func (v Viewer) Anonymous() bool {
	return !v.IsAuthenticated
}

type viewerResolver struct {
	session Session
	source  EntitlementSource
	cache   EntitlementCache
	log     *log.Logger
}

func entitlementKey(creatorID, userID string) string {
	return "entitlements:" + creatorID + ":" + userID
}

// resolve builds the viewer for creatorID. Anonymous viewers never cause an
// entitlement lookup. When the lookup fails the viewer is still returned,
// without subscription or unlocks, together with the error.
func (r *viewerResolver) resolve(ctx context.Context, creatorID string) (Viewer, error) {
	if r.session == nil || r.session.Token() == "" {
		return Viewer{}, nil
	}

	userID := r.session.Subject()
	v := Viewer{
		UserID:          userID,
		IsAuthenticated: true,
		IsOwner:         userID != "" && userID == creatorID,
	}

	ent, err := r.entitlements(ctx, creatorID, userID)
	if err != nil {
		return v, err
	}

	v.IsSubscriber = ent.Subscribed
	if len(ent.UnlockedPostIDs) > 0 {
		v.Unlocked = make(map[string]bool, len(ent.UnlockedPostIDs))
		for _, id := range ent.UnlockedPostIDs {
			v.Unlocked[id] = true
		}
	}
	return v, nil
}

func (r *viewerResolver) entitlements(ctx context.Context, creatorID, userID string) (Entitlements, error) {
	key := entitlementKey(creatorID, userID)

	var ent Entitlements
	if r.cache != nil {
		if b, err := r.cache.Get(ctx, key); err == nil {
			if err := json.Unmarshal(b, &ent); err == nil {
				r.log.Debug("Entitlements cache hit", "creator", creatorID)
				return ent, nil
			}
		}
	}

	ent, err := r.source.Entitlements(ctx, creatorID)
	if err != nil {
		return Entitlements{}, fmt.Errorf("fetch entitlements: %w", err)
	}

	if r.cache != nil {
		if b, err := json.Marshal(ent); err == nil {
			if err := r.cache.Set(ctx, key, b); err != nil {
				r.log.Warn("Failed to cache entitlements", "error", err)
			}
		}
	}
	return ent, nil
}

func (r *viewerResolver) invalidate(ctx context.Context, creatorID string) {
	if r.cache == nil || r.session == nil {
		return
	}
	if err := r.cache.Delete(ctx, entitlementKey(creatorID, r.session.Subject())); err != nil {
		r.log.Warn("Failed to drop cached entitlements", "error", err)
	}
}
