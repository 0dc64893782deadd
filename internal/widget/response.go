package widget

import (
	"slices"

	"crawlchat/internal/api"
	"crawlchat/internal/coordinator"
)

const (
	HeaderThinking = "Thinking..."
	HeaderComplete = "Thinking Complete"
)

// Step is one node of the reasoning panel.
type Step struct {
	Index   int
	Title   string
	Body    string
	Visible string
}

// ReasoningPanel is created by the first reasoning step and only grows.
type ReasoningPanel struct {
	Header   string
	Expanded bool
	Complete bool
	Steps    []*Step
}

// ContentSection holds the answer. It is created once and updated in place.
type ContentSection struct {
	Markdown string
	Version  int
}

// SourcesSection is created at most once, from a non-empty list.
type SourcesSection struct {
	Sources  []api.Source
	Expanded bool
}

// CrawlStatus is the transient "analyzing pages" indicator.
type CrawlStatus struct {
	Message string
	URLs    []string
}

// ErrorBubble is the single error shown for a failed turn.
type ErrorBubble struct {
	Message string
	Detail  string
}

// Response is the visible tree of one assistant answer. Every mutation is
// idempotent so that repeated fragments never duplicate nodes.
type Response struct {
	Loading   bool
	Crawling  *CrawlStatus
	Reasoning *ReasoningPanel
	Content   *ContentSection
	Sources   *SourcesSection
	Err       *ErrorBubble

	md *Markdown
}

var _ coordinator.Renderer = (*Response)(nil)

func NewResponse(md *Markdown) *Response {
	if md == nil {
		md = NewMarkdown(DefaultMarkdownStyle)
	}
	return &Response{md: md}
}

func (r *Response) ShowLoading() { r.Loading = true }
func (r *Response) HideLoading() { r.Loading = false }

// AppendReasoningStep adds a node. A completed panel is reopened so the new
// step's reveal is visible; CompleteReasoning collapses it again.
func (r *Response) AppendReasoningStep(step api.ReasoningStep) int {
	switch {
	case r.Reasoning == nil:
		r.Reasoning = &ReasoningPanel{Header: HeaderThinking, Expanded: true}
	case r.Reasoning.Complete:
		r.Reasoning.Header = HeaderThinking
		r.Reasoning.Complete = false
		r.Reasoning.Expanded = true
	}
	r.Reasoning.Steps = append(r.Reasoning.Steps, &Step{
		Index: step.Index,
		Title: step.Title,
		Body:  step.Body,
	})
	return len(r.Reasoning.Steps) - 1
}

func (r *Response) RevealReasoningStep(node int, visible string) {
	if r.Reasoning == nil || node < 0 || node >= len(r.Reasoning.Steps) {
		return
	}
	r.Reasoning.Steps[node].Visible = visible
}

func (r *Response) CompleteReasoning() {
	if r.Reasoning == nil {
		return
	}
	for _, s := range r.Reasoning.Steps {
		s.Visible = s.Body
	}
	r.Reasoning.Header = HeaderComplete
	r.Reasoning.Complete = true
	r.Reasoning.Expanded = false
}

func (r *Response) UpdateContent(markdown string) {
	if r.Content == nil {
		r.Content = &ContentSection{}
	} else if r.Content.Markdown == markdown {
		return
	}
	r.Content.Markdown = markdown
	r.Content.Version++
}

func (r *Response) RenderSources(sources []api.Source) {
	if r.Sources != nil || len(sources) == 0 {
		return
	}
	r.Sources = &SourcesSection{Sources: slices.Clone(sources)}
}

func (r *Response) ShowCrawling(message string, urls []string) {
	r.Crawling = &CrawlStatus{Message: message, URLs: slices.Clone(urls)}
}

func (r *Response) ClearCrawling() { r.Crawling = nil }

func (r *Response) ShowError(message, detail string) {
	if r.Err != nil {
		return
	}
	r.Err = &ErrorBubble{Message: message, Detail: detail}
}

// ToggleReasoning flips the reasoning panel open or closed.
func (r *Response) ToggleReasoning() bool {
	if r.Reasoning == nil {
		return false
	}
	r.Reasoning.Expanded = !r.Reasoning.Expanded
	return true
}

// ToggleSources flips the sources list open or closed.
func (r *Response) ToggleSources() bool {
	if r.Sources == nil {
		return false
	}
	r.Sources.Expanded = !r.Sources.Expanded
	return true
}

// Answer returns the current answer text, or "" before any content.
func (r *Response) Answer() string {
	if r.Content == nil {
		return ""
	}
	return r.Content.Markdown
}

// Empty reports whether nothing but transient indicators has been drawn.
func (r *Response) Empty() bool {
	return r.Reasoning == nil && r.Content == nil && r.Sources == nil && r.Err == nil
}
