package coordinator

import "crawlchat/internal/api"

// LoadingRenderer toggles the indicator shown between send and the first
// fragment.
type LoadingRenderer interface {
	ShowLoading()
	HideLoading()
}

// ReasoningRenderer owns the append-only reasoning panel.
type ReasoningRenderer interface {
	// AppendReasoningStep adds a node for step, creating the panel on the
	// first call, and returns the node's position.
	AppendReasoningStep(step api.ReasoningStep) int
	// RevealReasoningStep sets the visible body text of one node.
	RevealReasoningStep(node int, visible string)
	// CompleteReasoning fills every node, marks the panel complete and
	// collapses it.
	CompleteReasoning()
}

// ContentRenderer owns the single answer section.
type ContentRenderer interface {
	// UpdateContent creates the section on first call and replaces its text
	// afterwards.
	UpdateContent(markdown string)
}

// SourcesRenderer owns the citation section.
type SourcesRenderer interface {
	// RenderSources creates the section. Calls after the first are no-ops.
	RenderSources(sources []api.Source)
}

// StatusRenderer shows transient and terminal status.
type StatusRenderer interface {
	ShowCrawling(message string, urls []string)
	ClearCrawling()
	// ShowError shows the single error bubble of a failed turn.
	ShowError(message, detail string)
}

// Renderer is everything the coordinator draws with.
type Renderer interface {
	LoadingRenderer
	ReasoningRenderer
	ContentRenderer
	SourcesRenderer
	StatusRenderer
}
