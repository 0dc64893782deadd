package coordinator

import (
	"fmt"
	"strings"
	"time"

	"crawlchat/internal/api"
)

// manualScheduler queues callbacks until the test fires them.
type manualScheduler struct {
	pending []*manualTimer
	delays  []time.Duration
}

type manualTimer struct {
	s       *manualScheduler
	fn      func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	t := &manualTimer{s: s, fn: fn}
	s.pending = append(s.pending, t)
	s.delays = append(s.delays, d)
	return t
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// live returns the number of timers that are neither fired nor stopped.
func (s *manualScheduler) live() int {
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fireNext runs the oldest live timer. It reports false when none is left.
func (s *manualScheduler) fireNext() bool {
	for len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.fn()
		return true
	}
	return false
}

// drain fires timers until none remain, with a guard against runaway loops.
func (s *manualScheduler) drain() int {
	n := 0
	for s.fireNext() {
		n++
		if n > 10000 {
			panic("scheduler did not drain")
		}
	}
	return n
}

// recorder is a Renderer that logs every call and keeps the resulting tree.
type recorder struct {
	events []string

	loading   bool
	crawling  string
	steps     []api.ReasoningStep
	visible   []string
	complete  bool
	content   string
	contentN  int
	sources   []api.Source
	sourcesN  int
	errors    []string
	errDetail string
}

func (r *recorder) log(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) ShowLoading() { r.loading = true; r.log("loading") }
func (r *recorder) HideLoading() { r.loading = false; r.log("loading-hidden") }

func (r *recorder) AppendReasoningStep(step api.ReasoningStep) int {
	r.steps = append(r.steps, step)
	r.visible = append(r.visible, "")
	r.log("step %d %s", step.Index, step.Title)
	return len(r.steps) - 1
}

func (r *recorder) RevealReasoningStep(node int, visible string) {
	r.visible[node] = visible
	r.log("reveal %d %q", node, visible)
}

func (r *recorder) CompleteReasoning() {
	r.complete = true
	r.log("reasoning-complete")
}

func (r *recorder) UpdateContent(markdown string) {
	r.content = markdown
	r.contentN++
	r.log("content %q", markdown)
}

func (r *recorder) RenderSources(sources []api.Source) {
	r.sources = sources
	r.sourcesN++
	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
	}
	r.log("sources %s", strings.Join(urls, ","))
}

func (r *recorder) ShowCrawling(message string, urls []string) {
	r.crawling = message
	r.log("crawling %q", message)
}

func (r *recorder) ClearCrawling() {
	r.crawling = ""
	r.log("crawling-cleared")
}

func (r *recorder) ShowError(message, detail string) {
	r.errors = append(r.errors, message)
	r.errDetail = detail
	r.log("error %q", message)
}

// indexOf returns the position of the first event with the given prefix.
func (r *recorder) indexOf(prefix string) int {
	for i, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			return i
		}
	}
	return -1
}

func fixedDelay() time.Duration { return 100 * time.Millisecond }
