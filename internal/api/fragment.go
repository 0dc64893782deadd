package api

// Fragment is one decoded event from the answer stream. The concrete types
// below are the only implementations.
type Fragment interface {
	fragment()
}

// Content carries the answer text produced so far. Each Content replaces the
// previous one; it is never a delta.
type Content struct {
	Text    string
	IsFinal bool
}

// ReasoningStep is one step of the backend's visible reasoning. Index is the
// backend's step_number when present, otherwise zero.
type ReasoningStep struct {
	Title string
	Body  string
	Index int
}

// Crawling reports that the backend is fetching or analyzing pages.
type Crawling struct {
	Message string
	URLs    []string
}

// Completion ends the answer. FinalText may be empty, in which case the last
// Content text stands.
type Completion struct {
	FinalText string
	Sources   []Source
}

// UpstreamError is a failure reported by the backend inside the stream.
type UpstreamError struct {
	Message string
}

func (e UpstreamError) Error() string {
	return e.Message
}

// Source is a citation attached to a completion.
type Source struct {
	URL string `json:"url"`
}

func (Content) fragment()       {}
func (ReasoningStep) fragment() {}
func (Crawling) fragment()      {}
func (Completion) fragment()    {}
func (UpstreamError) fragment() {}
