package coordinator

import (
	"context"
	"sync"
	"time"
)

// Loop is a single-goroutine event loop for hosts without one of their own,
// such as the non-interactive `ask` command. Posted functions run one at a
// time, in order, on the goroutine that called Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It reports false once the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return true
}

// Stop makes Run return after the functions already queued have run.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted functions until Stop or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.queue = nil
			l.mu.Unlock()
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				stopped := l.stopped
				l.mu.Unlock()
				if stopped {
					return nil
				}
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()
			fn()
		}
	}
}

// AfterFunc implements Scheduler: fn is posted to the loop when d elapses.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return &loopTimer{t: time.AfterFunc(d, func() { l.Post(fn) })}
}

type loopTimer struct {
	t *time.Timer
}

func (lt *loopTimer) Stop() bool {
	return lt.t.Stop()
}
