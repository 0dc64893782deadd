package coordinator

import (
	"context"
	"time"

	"crawlchat/internal/api"
)

// RunTurn sends req and drives one answer through r on a private Loop. It
// returns once the turn has finished, with the turn's error, or ctx.Err() if
// ctx ends first.
func RunTurn(ctx context.Context, chat api.ChatAPI, req api.ChatRequest, r Renderer, delay func() time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := NewLoop()
	c := New(r, loop)
	if delay != nil {
		c.WithWordDelay(delay)
	}
	c.WithFinish(func(error) { loop.Stop() })

	loop.Post(c.Begin)

	go func() {
		err := chat.ChatStream(ctx, req, func(f api.Fragment) {
			loop.Post(func() { c.Handle(f) })
		})
		loop.Post(func() { c.Close(err) })
	}()

	if err := loop.Run(ctx); err != nil {
		cancel()
		c.Cancel()
		return err
	}
	return c.Err()
}
