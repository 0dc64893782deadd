package tui

import (
	"time"

	"crawlchat/internal/coordinator"

	tea "github.com/charmbracelet/bubbletea"
)

// revealTickMsg fires a callback registered with a tickScheduler.
type revealTickMsg struct {
	turn int
	id   int
}

// tickScheduler runs coordinator callbacks on the Bubble Tea loop. Each
// AfterFunc becomes a tea.Tick command; the model collects them with drain
// and routes the resulting revealTickMsg back through fire.
type tickScheduler struct {
	turn    int
	nextID  int
	pending map[int]func()
	queued  []tea.Cmd
}

var _ coordinator.Scheduler = (*tickScheduler)(nil)

func newTickScheduler(turn int) *tickScheduler {
	return &tickScheduler{turn: turn, pending: make(map[int]func())}
}

func (s *tickScheduler) AfterFunc(d time.Duration, fn func()) coordinator.Timer {
	s.nextID++
	id := s.nextID
	s.pending[id] = fn

	turn := s.turn
	s.queued = append(s.queued, tea.Tick(d, func(time.Time) tea.Msg {
		return revealTickMsg{turn: turn, id: id}
	}))
	return &tickTimer{s: s, id: id}
}

// fire runs the callback for id unless it was stopped.
func (s *tickScheduler) fire(id int) {
	fn, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	fn()
}

// drain returns the tick commands scheduled since the last drain.
func (s *tickScheduler) drain() []tea.Cmd {
	cmds := s.queued
	s.queued = nil
	return cmds
}

// stopAll drops every pending callback.
func (s *tickScheduler) stopAll() {
	clear(s.pending)
	s.queued = nil
}

func (s *tickScheduler) live() int {
	return len(s.pending)
}

type tickTimer struct {
	s  *tickScheduler
	id int
}

func (t *tickTimer) Stop() bool {
	if _, ok := t.s.pending[t.id]; !ok {
		return false
	}
	delete(t.s.pending, t.id)
	return true
}
