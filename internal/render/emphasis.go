package render

import (
	"regexp"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	boldPattern        = regexp.MustCompile(`\*\*([^*]+?)\*\*`)
	italicPattern      = regexp.MustCompile(`\*([^*]+?)\*`)
	placeholderPattern = regexp.MustCompile("\x00(\\d+)\x00")
)

// Emphasizer applies **bold** and *italic* markers with its own styling.
type Emphasizer struct {
	Bold   func(string) string
	Italic func(string) string
}

var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	italicStyle = lipgloss.NewStyle().Italic(true)
)

// Terminal styles emphasis with lipgloss.
var Terminal = Emphasizer{
	Bold:   func(s string) string { return boldStyle.Render(s) },
	Italic: func(s string) string { return italicStyle.Render(s) },
}

// Emphasis styles text with the Terminal emphasizer.
func Emphasis(text string) string {
	return Terminal.Apply(text)
}

// Apply resolves bold spans first and parks them behind placeholders so the
// italic pass cannot split a `**` pair. Unmatched markers stay literal.
func (e Emphasizer) Apply(text string) string {
	var bolds []string
	text = boldPattern.ReplaceAllStringFunc(text, func(m string) string {
		bolds = append(bolds, m[2:len(m)-2])
		return "\x00" + strconv.Itoa(len(bolds)-1) + "\x00"
	})

	text = italicPattern.ReplaceAllStringFunc(text, func(m string) string {
		return e.Italic(m[1 : len(m)-1])
	})

	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(bolds) {
			return m
		}
		return e.Bold(bolds[i])
	})
}
