package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/zfogg/vaultfeed/pkg/config"
	"github.com/zfogg/vaultfeed/pkg/feed"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
	FormatText  OutputFormat = "text"
)

// GetOutputFormat returns the configured output format
func GetOutputFormat() OutputFormat {
	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidateOutputFormat checks if format is valid
func ValidateOutputFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

var (
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
)

// Printer renders feed view models in one format
type Printer struct {
	w      io.Writer
	format OutputFormat
}

// New returns a printer writing to w
func New(w io.Writer, format OutputFormat) *Printer {
	return &Printer{w: w, format: format}
}

// Stdout returns a printer for the terminal in the configured format
func Stdout() *Printer {
	return New(color.Output, GetOutputFormat())
}

// Format returns the printer's format
func (p *Printer) Format() OutputFormat {
	return p.format
}

type contentJSON struct {
	Kind         string `json:"kind"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type postJSON struct {
	ID          string        `json:"id"`
	CreatorID   string        `json:"creatorId"`
	Visibility  string        `json:"visibility"`
	Locked      bool          `json:"locked"`
	Lock        string        `json:"lock,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Content     []contentJSON `json:"content,omitempty"`
	Liked       bool          `json:"liked"`
	Likes       int           `json:"likes"`
	Pending     bool          `json:"pending,omitempty"`
	Comments    int           `json:"comments"`
	Views       int           `json:"views"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type commentJSON struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPostJSON(pv feed.PostView) postJSON {
	out := postJSON{
		ID:          pv.ID,
		CreatorID:   pv.CreatorID,
		Visibility:  string(pv.Visibility),
		Locked:      pv.Locked(),
		Lock:        string(pv.Access.Lock),
		Title:       pv.Title,
		Description: pv.Description,
		Liked:       pv.Liked,
		Likes:       pv.Likes,
		Pending:     pv.LikePending,
		Comments:    pv.Comments,
		Views:       pv.Views,
		CreatedAt:   pv.CreatedAt,
	}
	for _, b := range pv.Content {
		out.Content = append(out.Content, contentJSON{Kind: string(b.Kind), URL: b.URL, ThumbnailURL: b.ThumbnailURL})
	}
	return out
}

func toCommentJSON(c feed.Comment) commentJSON {
	return commentJSON{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    c.Author.Username,
		AuthorID:  c.Author.ID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func (p *Printer) writeJSON(v interface{}) error {
	b, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}

// LockMessage is the call-to-action shown in place of locked content
func LockMessage(l feed.Lock) string {
	switch l {
	case feed.LockAuthenticate:
		return "Log in to view this post"
	case feed.LockPurchase:
		return "Purchase to unlock this post"
	default:
		return "Subscribe to view this post"
	}
}

// Feed renders an ordered list of posts
func (p *Printer) Feed(views []feed.PostView, hasMore bool) error {
	switch p.format {
	case FormatJSON:
		posts := make([]postJSON, len(views))
		for i, pv := range views {
			posts[i] = toPostJSON(pv)
		}
		return p.writeJSON(struct {
			Posts   []postJSON `json:"posts"`
			HasMore bool       `json:"hasMore"`
		}{posts, hasMore})
	case FormatTable:
		p.feedTable(views)
	default:
		for i, pv := range views {
			if i > 0 {
				fmt.Fprintln(p.w)
			}
			p.postText(i+1, pv)
		}
		if len(views) == 0 {
			dim.Fprintln(p.w, "No posts yet")
		}
	}
	if hasMore && p.format != FormatJSON {
		dim.Fprintln(p.w, "\nMore posts available")
	}
	return nil
}

// Post renders a single post
func (p *Printer) Post(pv feed.PostView) error {
	if p.format == FormatJSON {
		return p.writeJSON(toPostJSON(pv))
	}
	p.postText(0, pv)
	return nil
}

func (p *Printer) feedTable(views []feed.PostView) {
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	bold.Fprintln(w, "ID\tTIER\tTITLE\tLIKES\tCOMMENTS\tVIEWS")
	for _, pv := range views {
		title := pv.Title
		if pv.Locked() {
			title = "[" + LockMessage(pv.Access.Lock) + "]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", pv.ID, pv.Visibility, truncate(title, 48), likesLabel(pv), pv.Comments, pv.Views)
	}
	w.Flush()
}

func (p *Printer) postText(index int, pv feed.PostView) {
	if index > 0 {
		dim.Fprintf(p.w, "%d. ", index)
	}
	if pv.Locked() {
		yellow.Fprintf(p.w, "🔒 %s", LockMessage(pv.Access.Lock))
	} else {
		bold.Fprint(p.w, pv.Title)
	}
	dim.Fprintf(p.w, "  [%s] %s\n", pv.Visibility, pv.ID)

	if !pv.Locked() {
		if pv.Description != "" {
			fmt.Fprintf(p.w, "   %s\n", pv.Description)
		}
		for _, b := range pv.Content {
			cyan.Fprintf(p.w, "   %s ", b.Kind)
			fmt.Fprintln(p.w, b.URL)
		}
	}

	heart := "♡"
	c := dim
	if pv.Liked {
		heart, c = "♥", red
	}
	fmt.Fprint(p.w, "   ")
	c.Fprintf(p.w, "%s %s", heart, likesLabel(pv))
	fmt.Fprintf(p.w, "  💬 %d  👁 %d  %s\n", pv.Comments, pv.Views, pv.CreatedAt.Format("2006-01-02"))
}

func likesLabel(pv feed.PostView) string {
	s := fmt.Sprintf("%d", pv.Likes)
	if pv.LikePending {
		s += "…"
	}
	return s
}

// Comments renders a post's loaded thread
func (p *Printer) Comments(postID string, cs []feed.Comment, hasMore bool) error {
	if p.format == FormatJSON {
		out := make([]commentJSON, len(cs))
		for i, c := range cs {
			out[i] = toCommentJSON(c)
		}
		return p.writeJSON(struct {
			PostID   string        `json:"postId"`
			Comments []commentJSON `json:"comments"`
			HasMore  bool          `json:"hasMore"`
		}{postID, out, hasMore})
	}

	if len(cs) == 0 {
		dim.Fprintln(p.w, "No comments yet")
		return nil
	}
	for _, c := range cs {
		p.comment(c)
	}
	if hasMore {
		dim.Fprintln(p.w, "More comments available")
	}
	return nil
}

func (p *Printer) comment(c feed.Comment) {
	name := c.Author.DisplayName
	if name == "" {
		name = c.Author.Username
	}
	bold.Fprint(p.w, name)
	dim.Fprintf(p.w, " @%s · %s · %s\n", c.Author.Username, c.CreatedAt.Format("2006-01-02 15:04"), c.ID)
	fmt.Fprintf(p.w, "  %s\n", c.Content)
}

// Like renders the settled like state of a post
func (p *Printer) Like(postID string, snap feed.LikeSnapshot) error {
	if p.format == FormatJSON {
		return p.writeJSON(struct {
			PostID string `json:"postId"`
			Liked  bool   `json:"liked"`
			Likes  int    `json:"likes"`
		}{postID, snap.Liked, snap.Count})
	}
	if snap.Liked {
		red.Fprintf(p.w, "♥ Liked %s", postID)
	} else {
		dim.Fprintf(p.w, "♡ Unliked %s", postID)
	}
	fmt.Fprintf(p.w, " (%d likes)\n", snap.Count)
	return nil
}

// Comment renders a single comment
func (p *Printer) Comment(c feed.Comment) error {
	if p.format == FormatJSON {
		return p.writeJSON(toCommentJSON(c))
	}
	p.comment(c)
	return nil
}

// Event renders a feed event as a one-line status, for interactive sessions
func (p *Printer) Event(e feed.Event) {
	switch e.Kind {
	case feed.EventLikeChanged:
		state := "unliked"
		if e.Like.Liked {
			state = "liked"
		}
		if e.Pending {
			dim.Fprintf(p.w, "… %s %s (%d)\n", state, e.PostID, e.Like.Count)
		} else {
			fmt.Fprintf(p.w, "✓ %s %s (%d)\n", state, e.PostID, e.Like.Count)
		}
	case feed.EventPageLoaded:
		dim.Fprintf(p.w, "loaded %d posts\n", len(e.PostIDs))
	case feed.EventCommentAdded:
		green.Fprintf(p.w, "✓ comment added to %s (%d)\n", e.PostID, e.Comments)
	case feed.EventCommentRemoved:
		green.Fprintf(p.w, "✓ comment removed from %s (%d)\n", e.PostID, e.Comments)
	case feed.EventViewerChanged:
		dim.Fprintf(p.w, "viewer updated (subscriber: %t)\n", e.Viewer.IsSubscriber)
	case feed.EventAuthRequired:
		yellow.Fprintf(p.w, "Log in to continue: %s\n", e.LoginURL)
	case feed.EventWarning:
		yellow.Fprintf(p.w, "Warning: %v\n", e.Err)
	}
}

// Success prints a success message
func (p *Printer) Success(msg string, args ...interface{}) {
	green.Fprintf(p.w, msg+"\n", args...)
}

// Info prints an info message
func (p *Printer) Info(msg string, args ...interface{}) {
	cyan.Fprintf(p.w, msg+"\n", args...)
}

// Warning prints a warning message
func (p *Printer) Warning(msg string, args ...interface{}) {
	yellow.Fprintf(p.w, "Warning: "+msg+"\n", args...)
}

// Error prints an error message
func (p *Printer) Error(msg string, args ...interface{}) {
	red.Fprintf(p.w, "Error: "+msg+"\n", args...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
