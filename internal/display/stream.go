package display

import (
	"fmt"
	"io"
	"strings"

	"crawlchat/internal/api"
	"crawlchat/internal/coordinator"

	"github.com/charmbracelet/x/ansi"
)

// stepState tracks how much of one reasoning step has been written.
type stepState struct {
	step    api.ReasoningStep
	visible string
	printed int // words written
	open    bool
}

// StreamPrinter writes one answer to a plain terminal as it arrives. Lines
// are append-only, so reasoning steps are printed one at a time in order:
// a later step's words wait until the steps before it are fully written.
type StreamPrinter struct {
	w io.Writer

	activityUp bool

	thinkingUp bool
	steps      []*stepState
	current    int
	complete   bool

	answer     string
	printedLen int
	chatUp     bool

	sourcesUp bool
	errUp     bool
}

var _ coordinator.Renderer = (*StreamPrinter)(nil)

func NewStreamPrinter(w io.Writer) *StreamPrinter {
	if w == nil {
		w = Out
	}
	return &StreamPrinter{w: w}
}

// Answer is the latest answer text written.
func (p *StreamPrinter) Answer() string {
	return p.answer
}

// ─── Activity line ──────────────────────────────────────────────────────────

func (p *StreamPrinter) showActivity(text string) {
	text = ansi.Truncate(text, 70, "...")
	fmt.Fprintf(p.w, "\r  %s %-72s", warnStyle.Render("⟳"), text)
	p.activityUp = true
}

func (p *StreamPrinter) clearActivity() {
	if p.activityUp {
		fmt.Fprintf(p.w, "\r%-80s\r", "")
		p.activityUp = false
	}
}

func (p *StreamPrinter) ShowLoading() { p.showActivity("Waiting for response...") }
func (p *StreamPrinter) HideLoading() { p.clearActivity() }

func (p *StreamPrinter) ShowCrawling(message string, urls []string) {
	if len(urls) > 0 {
		message = fmt.Sprintf("%s (%d %s)", message, len(urls), pluralize(len(urls), "page", "pages"))
	}
	p.showActivity(message)
}

func (p *StreamPrinter) ClearCrawling() { p.clearActivity() }

// ─── Reasoning ──────────────────────────────────────────────────────────────

// AppendReasoningStep starts a new thinking block when the step arrives after
// the panel was completed, so the late step gets its own completion line.
func (p *StreamPrinter) AppendReasoningStep(step api.ReasoningStep) int {
	p.clearActivity()
	p.endAnswer()
	if p.complete {
		p.complete = false
		p.thinkingUp = false
	}
	if !p.thinkingUp {
		fmt.Fprintf(p.w, "\n  %s\n", thinkingStyle.Render("🧠 Thinking..."))
		p.thinkingUp = true
	}
	p.steps = append(p.steps, &stepState{step: step})
	node := len(p.steps) - 1
	p.advance()
	return node
}

func (p *StreamPrinter) RevealReasoningStep(node int, visible string) {
	if node < 0 || node >= len(p.steps) {
		return
	}
	p.steps[node].visible = visible
	p.advance()
}

func (p *StreamPrinter) CompleteReasoning() {
	if len(p.steps) == 0 || p.complete {
		return
	}
	for _, s := range p.steps {
		s.visible = s.step.Body
	}
	p.advance()
	p.complete = true
	fmt.Fprintf(p.w, "  %s\n", successStyle.Render("✓ Thinking Complete"))
}

// advance writes whatever is newly visible for the current step, moving on
// to the next step once the current one is fully shown.
func (p *StreamPrinter) advance() {
	for p.current < len(p.steps) {
		s := p.steps[p.current]
		if !s.open {
			fmt.Fprintf(p.w, "\n    %s\n    ", stepTitleStyle.Render(fmt.Sprintf("%d. %s", s.step.Index, s.step.Title)))
			s.open = true
		}
		if words := strings.Fields(s.visible); len(words) > s.printed {
			text := strings.Join(words[s.printed:], " ")
			if s.printed > 0 {
				text = " " + text
			}
			fmt.Fprint(p.w, dimStyle.Render(text))
			s.printed = len(words)
		}
		if s.visible != s.step.Body {
			return
		}
		fmt.Fprintln(p.w)
		p.current++
	}
}

// ─── Answer ─────────────────────────────────────────────────────────────────

func (p *StreamPrinter) UpdateContent(markdown string) {
	if markdown == p.answer {
		return
	}
	p.clearActivity()
	if !p.chatUp {
		fmt.Fprintln(p.w)
		p.chatUp = true
	}
	if strings.HasPrefix(markdown, p.answer) {
		fmt.Fprint(p.w, markdown[p.printedLen:])
	} else {
		// The backend replaced the answer rather than extending it.
		fmt.Fprint(p.w, "\n\n"+markdown)
	}
	p.answer = markdown
	p.printedLen = len(markdown)
}

func (p *StreamPrinter) RenderSources(sources []api.Source) {
	if p.sourcesUp || len(sources) == 0 {
		return
	}
	p.sourcesUp = true
	p.endAnswer()
	fmt.Fprintf(p.w, "\n  %s\n", sourcesStyle.Render("📎 Sources:"))
	for _, s := range sources {
		fmt.Fprintf(p.w, "     • %s\n", s.URL)
	}
}

func (p *StreamPrinter) ShowError(message, detail string) {
	if p.errUp {
		return
	}
	p.errUp = true
	p.clearActivity()
	p.endAnswer()
	fmt.Fprintf(p.w, "\n  %s %s\n", errorStyle.Render("✗"), message)
	if detail != "" {
		fmt.Fprintf(p.w, "    %s\n", dimStyle.Render(detail))
	}
}

// Finish terminates any open answer line. Call it once the turn is over.
func (p *StreamPrinter) Finish() {
	p.clearActivity()
	p.endAnswer()
}

func (p *StreamPrinter) endAnswer() {
	if p.chatUp {
		fmt.Fprintln(p.w)
		p.chatUp = false
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
