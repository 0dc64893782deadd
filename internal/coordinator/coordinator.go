package coordinator

import (
	"errors"
	"time"

	"crawlchat/internal/api"
	"crawlchat/internal/logging"
)

// GenericErrorMessage is shown when the turn fails for a reason the backend
// did not describe.
const GenericErrorMessage = "Sorry, I encountered an error. Please try again."

// DefaultCrawlingMessage is shown when a crawling event carries no text.
const DefaultCrawlingMessage = "Analyzing content..."

// ErrCancelled is the finish error of a turn stopped by Cancel.
var ErrCancelled = errors.New("response cancelled")

// Phase is where a turn is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStreaming:
		return "streaming"
	case PhaseSettled:
		return "settled"
	}
	return "unknown"
}

// Gate says whether answer fragments may render now.
type Gate int

const (
	// GateOpen renders content and sources as they arrive.
	GateOpen Gate = iota
	// GateHolding buffers them while a reasoning reveal is running.
	GateHolding
)

func (g Gate) String() string {
	if g == GateHolding {
		return "holding"
	}
	return "open"
}

type heldAnswer struct {
	content    string
	hasContent bool
	sources    []api.Source
}

// Coordinator routes the fragments of one answer into a Renderer, keeping
// reasoning reveals ahead of the answer they explain. All methods must be
// called from the host event loop that also runs the Scheduler's callbacks.
type Coordinator struct {
	r     Renderer
	sched Scheduler
	delay func() time.Duration

	onFinish func(err error)

	phase  Phase
	active []*Reveal
	held   *heldAnswer

	steps         int
	latestContent string
	contentShown  bool
	// reopened is set when a step arrives after the panel was completed.
	reopened      bool
	sourcesShown  bool
	loading       bool
	crawling      bool

	closed   bool
	finished bool
	err      error
}

func New(r Renderer, sched Scheduler) *Coordinator {
	return &Coordinator{
		r:     r,
		sched: sched,
		delay: RandomWordDelay,
	}
}

// WithWordDelay overrides the per-word reveal delay.
func (c *Coordinator) WithWordDelay(delay func() time.Duration) *Coordinator {
	c.delay = delay
	return c
}

// WithFinish registers the callback run once when the turn is over: the
// stream has closed and no reveal is running. err is nil for a clean answer.
func (c *Coordinator) WithFinish(fn func(err error)) *Coordinator {
	c.onFinish = fn
	return c
}

func (c *Coordinator) Phase() Phase { return c.phase }

func (c *Coordinator) Gate() Gate {
	if len(c.active) > 0 {
		return GateHolding
	}
	return GateOpen
}

// Finished reports whether the finish callback has run.
func (c *Coordinator) Finished() bool { return c.finished }

// Err is the reason the turn failed, if it did.
func (c *Coordinator) Err() error { return c.err }

// Begin starts the turn and shows the loading indicator.
func (c *Coordinator) Begin() {
	if c.phase != PhaseIdle {
		return
	}
	c.phase = PhaseStreaming
	c.loading = true
	c.r.ShowLoading()
}

// Handle applies one fragment. Fragments outside the streaming phase are
// dropped.
func (c *Coordinator) Handle(f api.Fragment) {
	if c.phase != PhaseStreaming {
		logging.Debug("coordinator: dropping %T in phase %s", f, c.phase)
		return
	}

	switch f := f.(type) {
	case api.ReasoningStep:
		c.hideLoading()
		c.clearCrawling()
		c.addStep(f)

	case api.Content:
		c.hideLoading()
		c.clearCrawling()
		c.latestContent = f.Text
		if c.Gate() == GateHolding {
			c.hold().setContent(f.Text)
			return
		}
		c.showContent(f.Text)

	case api.Completion:
		c.hideLoading()
		c.clearCrawling()
		text := f.FinalText
		if text == "" {
			text = c.latestContent
		}
		c.latestContent = text
		if c.Gate() == GateHolding {
			h := c.hold()
			if text != "" {
				h.setContent(text)
			}
			h.sources = f.Sources
			return
		}
		if text != "" {
			c.showContent(text)
		}
		c.showSources(f.Sources)

	case api.Crawling:
		c.hideLoading()
		msg := f.Message
		if msg == "" {
			msg = DefaultCrawlingMessage
		}
		c.crawling = true
		c.r.ShowCrawling(msg, f.URLs)

	case api.UpstreamError:
		msg := f.Message
		if msg == "" {
			msg = GenericErrorMessage
		}
		c.fail(f, msg, "")

	default:
		logging.Warn("coordinator: unhandled fragment %T", f)
	}
}

// Close ends the stream. A nil error settles the turn normally; running
// reveals keep going and release any held answer when they finish. A non-nil
// error fails the turn.
func (c *Coordinator) Close(err error) {
	if c.phase != PhaseStreaming {
		return
	}
	if err != nil {
		c.fail(err, GenericErrorMessage, err.Error())
		return
	}
	c.phase = PhaseSettled
	c.closed = true
	c.hideLoading()
	c.clearCrawling()
	c.maybeFinish()
}

// Cancel abandons the turn: reveals jump to their full text, held content is
// discarded and the turn finishes with ErrCancelled.
func (c *Coordinator) Cancel() {
	if c.finished {
		return
	}
	c.phase = PhaseSettled
	c.stopReveals()
	c.recomplete()
	c.held = nil
	c.hideLoading()
	c.clearCrawling()
	c.closed = true
	if c.err == nil {
		c.err = ErrCancelled
	}
	c.maybeFinish()
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (c *Coordinator) addStep(step api.ReasoningStep) {
	c.steps++
	if c.contentShown {
		c.reopened = true
	}
	if step.Index == 0 {
		step.Index = c.steps
	}
	node := c.r.AppendReasoningStep(step)

	var rv *Reveal
	rv = NewReveal(c.sched, step.Body, c.delay,
		func(visible string) { c.r.RevealReasoningStep(node, visible) },
		func() { c.revealDone(rv) },
	)
	c.active = append(c.active, rv)
	rv.Start()
}

func (c *Coordinator) revealDone(rv *Reveal) {
	for i, a := range c.active {
		if a == rv {
			c.active = append(c.active[:i], c.active[i+1:]...)
			break
		}
	}
	if len(c.active) == 0 {
		c.release()
		c.recomplete()
	}
	c.maybeFinish()
}

func (c *Coordinator) hold() *heldAnswer {
	if c.held == nil {
		c.held = &heldAnswer{}
	}
	return c.held
}

func (h *heldAnswer) setContent(text string) {
	h.content = text
	h.hasContent = true
}

// release renders the held answer, content first.
func (c *Coordinator) release() {
	h := c.held
	c.held = nil
	if h == nil {
		return
	}
	if h.hasContent && h.content != "" {
		c.showContent(h.content)
	}
	c.showSources(h.sources)
}

func (c *Coordinator) showContent(text string) {
	if !c.contentShown {
		c.contentShown = true
		c.stopReveals()
		if c.steps > 0 {
			c.r.CompleteReasoning()
		}
	}
	c.r.UpdateContent(text)
}

// recomplete collapses a panel that a late step reopened.
func (c *Coordinator) recomplete() {
	if c.reopened {
		c.reopened = false
		c.r.CompleteReasoning()
	}
}

func (c *Coordinator) showSources(sources []api.Source) {
	if c.sourcesShown || len(sources) == 0 {
		return
	}
	c.sourcesShown = true
	c.r.RenderSources(sources)
}

func (c *Coordinator) stopReveals() {
	active := c.active
	c.active = nil
	for _, rv := range active {
		rv.Stop()
	}
}

func (c *Coordinator) hideLoading() {
	if c.loading {
		c.loading = false
		c.r.HideLoading()
	}
}

func (c *Coordinator) clearCrawling() {
	if c.crawling {
		c.crawling = false
		c.r.ClearCrawling()
	}
}

func (c *Coordinator) fail(err error, message, detail string) {
	c.phase = PhaseSettled
	c.stopReveals()
	c.recomplete()
	c.held = nil
	c.hideLoading()
	c.clearCrawling()
	c.err = err
	c.r.ShowError(message, detail)
	c.closed = true
	c.maybeFinish()
}

func (c *Coordinator) maybeFinish() {
	if c.finished || !c.closed || len(c.active) > 0 {
		return
	}
	c.finished = true
	if c.err != nil {
		logging.Info("turn finished with error: %v", c.err)
	} else {
		logging.Debug("turn finished")
	}
	if c.onFinish != nil {
		c.onFinish(c.err)
	}
}
