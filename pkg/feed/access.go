package feed

import "time"

// Lock names the call-to-action that would lift a denial
type Lock string

const (
	LockNone         Lock = ""
	LockAuthenticate Lock = "authenticate"
	LockSubscribe    Lock = "subscribe"
	LockPurchase     Lock = "purchase"
)

// Access is the outcome of evaluating a post for a viewer
type Access struct {
	Visible bool
	Lock    Lock
}

// CanView reports whether the viewer may see the raw media of a post in the
// given tier. unlocked is the externally supplied pay-per-view flag.
func CanView(tier Tier, v Viewer, unlocked bool) bool {
	if v.IsOwner {
		return true
	}
	switch tier {
	case TierPublic:
		return true
	case TierAuthenticated:
		return v.IsAuthenticated
	case TierSubscribers:
		return v.IsSubscriber
	case TierPPV:
		return unlocked
	default:
		return false
	}
}

// Evaluate decides access to p and, when denied, which lock applies
func Evaluate(p Post, v Viewer) Access {
	if CanView(p.Visibility, v, v.HasUnlocked(p.ID)) {
		return Access{Visible: true}
	}
	switch p.Visibility {
	case TierAuthenticated:
		return Access{Lock: LockAuthenticate}
	case TierPPV:
		return Access{Lock: LockPurchase}
	default:
		// subscribers, and any tier this client does not know
		return Access{Lock: LockSubscribe}
	}
}

// PostView is one rendered feed entry. When Access.Visible is false the
// title, description and content are empty.
type PostView struct {
	ID          string
	CreatorID   string
	Visibility  Tier
	Access      Access
	Title       string
	Description string
	Content     []ContentBlock
	Liked       bool
	Likes       int
	LikePending bool
	Comments    int
	Views       int
	CreatedAt   time.Time
	Expanded    bool
}

// Locked reports whether the entry renders as a placeholder
func (pv PostView) Locked() bool {
	return !pv.Access.Visible
}

func newPostView(p Post, a Access, e engagementView) PostView {
	pv := PostView{
		ID:          p.ID,
		CreatorID:   p.CreatorID,
		Visibility:  p.Visibility,
		Access:      a,
		Liked:       e.like.Liked,
		Likes:       e.like.Count,
		LikePending: e.pending,
		Comments:    e.comments,
		Views:       p.Views,
		CreatedAt:   p.CreatedAt,
	}
	if !a.Visible {
		return pv
	}
	pv.Title = p.Title
	pv.Description = p.Description
	pv.Content = append([]ContentBlock(nil), p.Content...)
	return pv
}
