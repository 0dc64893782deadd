package widget

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const indent = "  "

// View draws the live response. spin is the current spinner frame, shown in
// front of the loading and crawling indicators.
func (r *Response) View(width int, spin string) string {
	return r.render(width, spin, false, true)
}

// Transcript draws the response for scrollback once the turn is over. With
// expand set, collapsed panels are drawn open.
func (r *Response) Transcript(width int, expand bool) string {
	return r.render(width, "", expand, false)
}

// ExpandedReasoning draws only the reasoning panel, open. It is "" when the
// response had no reasoning.
func (r *Response) ExpandedReasoning(width int) string {
	if r.Reasoning == nil {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return r.renderReasoning(width-len(indent), true)
}

// ExpandedSources draws only the sources list, open. It is "" when the
// response cited no sources.
func (r *Response) ExpandedSources() string {
	if r.Sources == nil {
		return ""
	}
	return r.renderSources(true)
}

func (r *Response) render(width int, spin string, expand, live bool) string {
	if width <= 0 {
		width = 80
	}
	inner := width - len(indent)

	var blocks []string

	if live && r.Loading {
		blocks = append(blocks, indent+spin+" "+statusStyle.Render("Waiting for response..."))
	}
	if r.Reasoning != nil {
		blocks = append(blocks, r.renderReasoning(inner, expand || r.Reasoning.Expanded))
	}
	if r.Content != nil && r.Content.Markdown != "" {
		blocks = append(blocks, indentBlock(r.md.Render(r.Content.Markdown, inner), indent))
	}
	if r.Sources != nil {
		blocks = append(blocks, r.renderSources(expand || r.Sources.Expanded))
	}
	if live && r.Crawling != nil {
		blocks = append(blocks, r.renderCrawling(spin, inner))
	}
	if r.Err != nil {
		b := indent + errorStyle.Render("✗ "+r.Err.Message)
		if r.Err.Detail != "" {
			b += "\n" + indent + "  " + dimStyle.Render(r.Err.Detail)
		}
		blocks = append(blocks, b)
	}

	return strings.Join(blocks, "\n\n")
}

func (r *Response) renderReasoning(width int, open bool) string {
	p := r.Reasoning
	headerStyle := reasoningHeaderStyle
	if p.Complete {
		headerStyle = reasoningDoneStyle
	}

	chevron := "▸"
	if open {
		chevron = "▾"
	}
	header := indent + headerStyle.Render(chevron+" "+p.Header)
	if !open {
		return header + dimStyle.Render(fmt.Sprintf(" (%d %s)", len(p.Steps), plural(len(p.Steps), "step", "steps")))
	}

	lines := []string{header}
	for _, s := range p.Steps {
		lines = append(lines, indent+"  "+stepTitleStyle.Render(fmt.Sprintf("%d. %s", s.Index, s.Title)))
		if s.Visible != "" {
			body := wrapText(s.Visible, width-5)
			lines = append(lines, indentBlock(stepBodyStyle.Render(body), indent+"     "))
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Response) renderSources(open bool) string {
	n := len(r.Sources.Sources)
	if !open {
		return indent + sourcesHeaderStyle.Render("▸ Sources") + dimStyle.Render(fmt.Sprintf(" (%d)", n))
	}
	lines := []string{indent + sourcesHeaderStyle.Render("▾ Sources")}
	for _, s := range r.Sources.Sources {
		lines = append(lines, indent+"  • "+sourceLinkStyle.Render(s.URL))
	}
	return strings.Join(lines, "\n")
}

func (r *Response) renderCrawling(spin string, width int) string {
	line := indent + spin + " " + statusStyle.Render(r.Crawling.Message)
	if len(r.Crawling.URLs) == 0 {
		return line
	}
	lines := []string{line}
	for _, u := range r.Crawling.URLs {
		lines = append(lines, indent+"    "+hintStyle.Render(truncate(u, width-4)))
	}
	return strings.Join(lines, "\n")
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func indentBlock(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapText breaks text on word boundaries to fit width.
func wrapText(text string, width int) string {
	if width < 10 {
		width = 10
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// truncate cuts s to n terminal cells, ending in "...".
func truncate(s string, n int) string {
	if n < 4 {
		return s
	}
	return ansi.Truncate(s, n, "...")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
