package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crawlchat/internal/config"
	"crawlchat/internal/logging"
)

type Client struct {
	endpoint    string
	urls        []string
	companyName string
	httpClient  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		endpoint:    strings.TrimSpace(cfg.Endpoint()),
		urls:        cfg.URLs,
		companyName: cfg.CompanyName,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
}

// --- Chat (Streaming) ---

// ChatRequest is the body posted for every user message.
type ChatRequest struct {
	URLs        []string `json:"urls"`
	Query       string   `json:"query"`
	SessionID   string   `json:"session_id"`
	CompanyName string   `json:"company_name"`
}

// TransportError is a failure to obtain or read the stream. It ends the turn.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		body := strings.TrimSpace(e.Body)
		if body == "" {
			return fmt.Sprintf("server returned %d", e.StatusCode)
		}
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, body)
	}
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FragmentCallback receives every fragment in stream order.
type FragmentCallback func(f Fragment)

var errStopStream = errors.New("stream ended by upstream error")

// NewChatRequest fills in the configured crawl targets and company name.
func (c *Client) NewChatRequest(query, sessionID string) ChatRequest {
	urls := c.urls
	if urls == nil {
		urls = []string{}
	}
	return ChatRequest{
		URLs:        urls,
		Query:       query,
		SessionID:   sessionID,
		CompanyName: c.companyName,
	}
}

// ChatStream posts req and delivers fragments to cb until the stream ends,
// an UpstreamError fragment arrives, or ctx is cancelled. Returns a
// *TransportError when the stream could not be obtained or read.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, cb FragmentCallback) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	logging.Debug("chat request: endpoint=%s session=%s", c.endpoint, req.SessionID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	parser := NewParser()
	err = parser.Stream(resp.Body, func(f Fragment) error {
		cb(f)
		if _, ok := f.(UpstreamError); ok {
			return errStopStream
		}
		return nil
	})
	if errors.Is(err, errStopStream) {
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	return nil
}
