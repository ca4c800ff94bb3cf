package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Options controls terminal markdown rendering.
type Options struct {
	// Width wraps output; zero keeps glamour's default.
	Width int
	// Style is a glamour style name ("dark", "light", "notty"). Empty
	// detects the terminal background.
	Style string
}

// Renderer renders assistant replies. A zero Renderer falls back to
// Emphasis.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer builds a glamour renderer. If glamour cannot be set up the
// returned Renderer uses Emphasis instead.
func NewRenderer(opts Options) *Renderer {
	termOpts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if opts.Style == "" {
		termOpts = append(termOpts, glamour.WithAutoStyle())
	} else {
		termOpts = append(termOpts, glamour.WithStylePath(opts.Style))
	}
	if opts.Width > 0 {
		termOpts = append(termOpts, glamour.WithWordWrap(opts.Width))
	}

	term, err := glamour.NewTermRenderer(termOpts...)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{term: term}
}

// Render returns text as styled terminal output without surrounding blank
// lines.
func (r *Renderer) Render(text string) string {
	if r == nil || r.term == nil || text == "" {
		return Emphasis(text)
	}
	out, err := r.term.Render(text)
	if err != nil {
		return Emphasis(text)
	}
	return strings.Trim(out, "\n")
}

// Markdown renders text once with the given options.
func Markdown(text string, opts Options) string {
	return NewRenderer(opts).Render(text)
}
