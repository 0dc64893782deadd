package coordinator

import (
	"math/rand/v2"
	"strings"
	"time"
)

const (
	minWordDelay = 80 * time.Millisecond
	wordJitter   = 40 * time.Millisecond
)

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks on the host event loop after a delay. Callbacks
// must never run concurrently with other coordinator work.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RandomWordDelay returns a delay uniformly drawn from [80ms, 120ms).
func RandomWordDelay() time.Duration {
	return minWordDelay + rand.N(wordJitter)
}

// Reveal progressively shows one reasoning step's text, one word per tick.
// It owns its own stop signal and pending timer.
type Reveal struct {
	full  string
	words []string
	shown int

	sched  Scheduler
	delay  func() time.Duration
	set    func(visible string)
	onDone func()

	timer Timer
	done  bool
}

// NewReveal prepares a reveal of text. set receives every visible prefix and
// finally the full text verbatim; onDone runs once when the reveal finishes
// on its own. Nothing happens until Start.
func NewReveal(sched Scheduler, text string, delay func() time.Duration, set func(string), onDone func()) *Reveal {
	if delay == nil {
		delay = RandomWordDelay
	}
	return &Reveal{
		full:   text,
		words:  strings.Fields(text),
		sched:  sched,
		delay:  delay,
		set:    set,
		onDone: onDone,
	}
}

// Start shows the first word immediately and schedules the rest.
func (r *Reveal) Start() {
	if len(r.words) == 0 {
		r.finish()
		return
	}
	r.tick()
}

func (r *Reveal) tick() {
	r.timer = nil
	if r.done {
		return
	}
	if r.shown >= len(r.words) {
		r.finish()
		return
	}
	r.shown++
	r.set(strings.Join(r.words[:r.shown], " "))
	r.timer = r.sched.AfterFunc(r.delay(), r.tick)
}

func (r *Reveal) finish() {
	r.done = true
	r.set(r.full)
	if r.onDone != nil {
		r.onDone()
	}
}

// Stop writes the full text immediately and cancels the pending tick. onDone
// is not called. Stopping a finished reveal is a no-op.
func (r *Reveal) Stop() {
	if r.done {
		return
	}
	r.done = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.set(r.full)
}
