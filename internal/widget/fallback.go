package widget

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderPlain is a line-oriented markdown renderer used when glamour cannot
// build a renderer. It handles fences, headings, quotes, lists and bold.
func renderPlain(text string, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	inCode := false
	var out []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			if inCode {
				lang := strings.TrimSpace(trimmed[3:])
				out = append(out, codeFenceStyle.Render("┌─ "+lang))
			} else {
				out = append(out, codeFenceStyle.Render("└──"))
			}
			continue
		}
		if inCode {
			out = append(out, codeFenceStyle.Render("│ ")+line)
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "#"):
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, headingStyle.Render(heading))
		case trimmed == "---" || trimmed == "***" || trimmed == "___":
			out = append(out, dimStyle.Render(strings.Repeat("─", min(width, 40))))
		case strings.HasPrefix(trimmed, "> "):
			out = append(out, quoteStyle.Render("│ ")+wrap.Render(renderInline(trimmed[2:])))
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			indent := strings.Repeat(" ", len(line)-len(strings.TrimLeft(line, " \t")))
			out = append(out, indent+"• "+renderInline(trimmed[2:]))
		default:
			out = append(out, wrap.Render(renderInline(line)))
		}
	}
	return strings.Join(out, "\n")
}

// renderInline turns **bold** spans into styled text and drops stray
// backticks.
func renderInline(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "**")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+2:], "**")
		if end < 0 {
			break
		}
		b.WriteString(s[:start])
		b.WriteString(boldStyle.Render(s[start+2 : start+2+end]))
		s = s[start+2+end+2:]
	}
	b.WriteString(s)
	return strings.ReplaceAll(b.String(), "`", "")
}
