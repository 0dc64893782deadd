package widget

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"crawlchat/internal/logging"
)

// DefaultMarkdownStyle is the glamour standard style used for answers.
const DefaultMarkdownStyle = "dark"

// Markdown renders answer text for the terminal. The glamour renderer is
// rebuilt only when the wrap width changes; results are cached per text.
type Markdown struct {
	style string
	width int
	r     *glamour.TermRenderer

	lastIn  string
	lastW   int
	lastOut string
}

func NewMarkdown(style string) *Markdown {
	if style == "" {
		style = DefaultMarkdownStyle
	}
	return &Markdown{style: style}
}

// Render returns text as terminal markup wrapped to width. It falls back to
// the plain renderer when glamour is unavailable.
func (m *Markdown) Render(text string, width int) string {
	if width < 20 {
		width = 20
	}
	if text == m.lastIn && width == m.lastW && m.lastOut != "" {
		return m.lastOut
	}

	out, err := m.render(text, width)
	if err != nil {
		logging.Warn("markdown render failed, using plain text: %v", err)
		out = renderPlain(text, width)
	}
	m.lastIn, m.lastW, m.lastOut = text, width, out
	return out
}

func (m *Markdown) render(text string, width int) (string, error) {
	if m.r == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		m.r = r
		m.width = width
	}
	out, err := m.r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
