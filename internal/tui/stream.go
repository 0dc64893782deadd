package tui

import (
	"context"

	"crawlchat/internal/api"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Messages sent from the stream goroutine to Bubble Tea ─────────────────

type fragmentMsg struct {
	turn int
	f    api.Fragment
}

type streamClosedMsg struct {
	turn int
	err  error
}

// ─── Stream command ─────────────────────────────────────────────────────────
//
// The request runs in a goroutine that pushes fragments into a channel. The
// model reads one message at a time with waitForStream and re-arms it after
// every fragment, so fragments are applied in order on the Update loop.

func beginStream(ctx context.Context, client api.ChatAPI, req api.ChatRequest, turn int) (<-chan tea.Msg, tea.Cmd) {
	ch := make(chan tea.Msg, 64)

	send := func(msg tea.Msg) bool {
		select {
		case ch <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)
		err := client.ChatStream(ctx, req, func(f api.Fragment) {
			send(fragmentMsg{turn: turn, f: f})
		})
		send(streamClosedMsg{turn: turn, err: err})
	}()

	return ch, waitForStream(ch, turn)
}

// waitForStream reads the next message from the channel. A closed channel
// reports a clean close; the coordinator ignores duplicates.
func waitForStream(ch <-chan tea.Msg, turn int) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamClosedMsg{turn: turn}
		}
		return msg
	}
}
