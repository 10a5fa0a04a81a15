package stubserver

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/zfogg/vaultfeed/pkg/feed"
)

// Well-known accounts every seeded store contains
const (
	DemoCreatorID  = "demo"
	SubscriberID   = "subscriber"
	FollowerID     = "follower"
	seedCommenters = 12
)

var tiers = []feed.Tier{feed.TierPublic, feed.TierPublic, feed.TierAuthenticated, feed.TierSubscribers, feed.TierSubscribers, feed.TierPPV}

var kinds = []feed.MediaKind{feed.MediaImage, feed.MediaImage, feed.MediaVideo, feed.MediaAudio}

// SeedOptions controls how much fake data Seed creates
type SeedOptions struct {
	Posts       int
	Creators    int
	MaxComments int
	Seed        int64
}

// Seed fills store with fake creators, posts and comments. The demo creator
// always exists; SubscriberID subscribes to it and FollowerID bought its
// first pay-per-view post.
func Seed(store *Store, opts SeedOptions) {
	if opts.Posts <= 0 {
		opts.Posts = 45
	}
	if opts.Creators <= 0 {
		opts.Creators = 1
	}
	if opts.MaxComments <= 0 {
		opts.MaxComments = 8
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	_ = gofakeit.Seed(opts.Seed)
	rng := rand.New(rand.NewSource(opts.Seed))

	creators := []string{DemoCreatorID}
	store.AddUser(feed.Author{ID: DemoCreatorID, DisplayName: "Demo Creator", Username: "demo", AvatarURL: avatarURL(DemoCreatorID)})
	for i := 1; i < opts.Creators; i++ {
		id := uuid.NewString()
		creators = append(creators, id)
		store.AddUser(fakeAuthor(id))
	}

	store.AddUser(feed.Author{ID: SubscriberID, DisplayName: "Sam Subscriber", Username: "subscriber"})
	store.AddUser(feed.Author{ID: FollowerID, DisplayName: "Fran Follower", Username: "follower"})
	commenters := []string{SubscriberID, FollowerID}
	for i := 0; i < seedCommenters; i++ {
		id := uuid.NewString()
		store.AddUser(fakeAuthor(id))
		commenters = append(commenters, id)
	}
	store.Subscribe(SubscriberID, DemoCreatorID)

	now := time.Now().UTC()
	purchased := false
	for i := 0; i < opts.Posts; i++ {
		creator := creators[i%len(creators)]
		tier := tiers[rng.Intn(len(tiers))]
		p := store.AddPost(feed.Post{
			ID:          uuid.NewString(),
			CreatorID:   creator,
			Title:       gofakeit.HipsterSentence(),
			Description: gofakeit.HipsterSentence(),
			Content:     fakeContent(rng),
			Visibility:  tier,
			Likes:       rng.Intn(500),
			Views:       rng.Intn(10000),
			CreatedAt:   gofakeit.DateRange(now.AddDate(0, 0, -90), now),
		})
		if tier == feed.TierPPV && creator == DemoCreatorID && !purchased {
			store.Purchase(FollowerID, p.ID)
			purchased = true
		}

		for n := rng.Intn(opts.MaxComments + 1); n > 0; n-- {
			author := commenters[rng.Intn(len(commenters))]
			_, _ = store.AddComment(author, p.ID, gofakeit.HipsterSentence())
		}
	}
}

func fakeAuthor(id string) feed.Author {
	return feed.Author{
		ID:          id,
		DisplayName: gofakeit.Name(),
		Username:    gofakeit.Username(),
		AvatarURL:   avatarURL(id),
	}
}

func avatarURL(id string) string {
	return fmt.Sprintf("https://cdn.vaultfeed.test/avatars/%s.png", id)
}

func fakeContent(rng *rand.Rand) []feed.ContentBlock {
	blocks := make([]feed.ContentBlock, 1+rng.Intn(3))
	for i := range blocks {
		kind := kinds[rng.Intn(len(kinds))]
		id := uuid.NewString()
		b := feed.ContentBlock{Kind: kind, URL: fmt.Sprintf("https://cdn.vaultfeed.test/media/%s.%s", id, extension(kind))}
		if kind != feed.MediaAudio {
			b.ThumbnailURL = fmt.Sprintf("https://cdn.vaultfeed.test/thumbs/%s.jpg", id)
		}
		blocks[i] = b
	}
	return blocks
}

func extension(k feed.MediaKind) string {
	switch k {
	case feed.MediaVideo:
		return "mp4"
	case feed.MediaAudio:
		return "mp3"
	default:
		return "jpg"
	}
}
