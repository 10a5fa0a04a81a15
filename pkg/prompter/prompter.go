package prompter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zfogg/vaultfeed/pkg/feed"
	"golang.org/x/term"
)

// Prompter reads answers from in and writes prompts to out
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // terminal fd for hidden input, -1 if none
}

// New returns a prompter over arbitrary streams; hidden input is read as a
// plain line.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Terminal returns a prompter on stdin/stdout
func Terminal() *Prompter {
	p := New(os.Stdin, os.Stdout)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		p.fd = fd
	}
	return p
}

// PromptString prompts user for a string input
func (p *Prompter) PromptString(label string) (string, error) {
	fmt.Fprint(p.out, label)
	input, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptPassword prompts for a secret without echoing it
func (p *Prompter) PromptPassword(label string) (string, error) {
	if p.fd < 0 {
		return p.PromptString(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// PromptConfirm prompts user for yes/no confirmation
func (p *Prompter) PromptConfirm(label string) (bool, error) {
	input, err := p.PromptString(label + " (y/n) ")
	if err != nil {
		return false, err
	}
	response := strings.ToLower(input)
	return response == "y" || response == "yes", nil
}

// ConfirmDeletion asks before a comment is removed. Read errors count as no.
func (p *Prompter) ConfirmDeletion() feed.Confirmer {
	return func(ctx context.Context, c feed.Comment) bool {
		if ctx.Err() != nil {
			return false
		}
		preview := c.Content
		if r := []rune(preview); len(r) > 60 {
			preview = string(r[:59]) + "…"
		}
		label := "Delete this comment?"
		if preview != "" {
			label = fmt.Sprintf("Delete comment %q?", preview)
		}
		ok, err := p.PromptConfirm(label)
		return err == nil && ok
	}
}

// AlwaysConfirm is the confirmer behind --yes flags
func AlwaysConfirm(context.Context, feed.Comment) bool { return true }
