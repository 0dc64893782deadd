package api

import "context"

// ChatAPI defines the interface for the chat backend client.
// *Client satisfies this interface. TUI and tests can use mock implementations.
type ChatAPI interface {
	NewChatRequest(query, sessionID string) ChatRequest
	ChatStream(ctx context.Context, req ChatRequest, cb FragmentCallback) error
	Endpoint() string
}

var _ ChatAPI = (*Client)(nil)
