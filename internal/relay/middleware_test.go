package relay

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawlchat/internal/api"
	"crawlchat/internal/config"
	"crawlchat/internal/logging"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.LevelInfo)

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("abc"))
		w.(http.Flusher).Flush()
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	assert.True(t, rr.Flushed, "Flush must reach the underlying writer")
	assert.Contains(t, buf.String(), "POST /api/chat | 418 | 3 bytes")
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.LevelInfo)

	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Internal server error")
	assert.Contains(t, buf.String(), "panic in POST /: boom")
}

func TestClientLimiter(t *testing.T) {
	l := NewClientLimiter(1, 2)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "clients are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refilled")

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	l.mu.Lock()
	_, kept := l.clients["a"]
	l.mu.Unlock()
	assert.False(t, kept, "idle bucket evicted")
}

func TestClientLimiterSweepsOncePerTTL(t *testing.T) {
	l := NewClientLimiter(10, 10)
	start := time.Unix(1000, 0)
	now := start
	l.now = func() time.Time { return now }
	has := func(client string) bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, ok := l.clients[client]
		return ok
	}
	at := func(d time.Duration, client string) {
		now = start.Add(d)
		l.Allow(client)
	}

	at(0, "a")
	at(30*time.Second, "a")
	at(40*time.Second, "b")
	at(95*time.Second, "c")
	assert.False(t, has("a"), "idle 65s, swept")
	assert.True(t, has("b"), "idle 55s, kept")

	at(150*time.Second, "c")
	assert.True(t, has("b"), "stale but the next sweep is not due")

	at(160*time.Second, "c")
	assert.False(t, has("b"), "swept once a minute has passed")
	assert.True(t, has("c"))
}

func TestRateLimitMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := RateLimitMiddleware(NewClientLimiter(0.001, 1), logging.New(&logs, logging.LevelWarn))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusNoContent, send(http.MethodPost).Code)
	limited := send(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, send(http.MethodOptions).Code, "preflight is not limited")
	assert.Contains(t, logs.String(), "[WARN] relay: rate limit exceeded for 10.0.0.1")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	assert.Equal(t, "192.0.2.7", clientIP(req))
	req.RemoteAddr = "weird"
	assert.Equal(t, "weird", clientIP(req))
}

func TestServerEndToEnd(t *testing.T) {
	upstream, rec := newUpstream(t, http.StatusOK, ssePayload)
	t.Setenv("CRAWLCHAT_RELAY_TEST_KEY", "secret")

	var logs bytes.Buffer
	srv := NewServer(config.Relay{
		Listen:    "127.0.0.1:0",
		Upstream:  upstream.URL,
		APIKeyEnv: "CRAWLCHAT_RELAY_TEST_KEY",
	}, logging.New(&logs, logging.LevelInfo))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := api.NewClient(&config.Config{ProxyURL: "http://" + ln.Addr().String() + "/api/chat"})
	var frags []api.Fragment
	err = client.ChatStream(context.Background(), client.NewChatRequest("hi", "session_1"), func(f api.Fragment) {
		frags = append(frags, f)
	})
	require.NoError(t, err)

	require.Len(t, frags, 2)
	assert.Equal(t, api.Content{Text: "Hel"}, frags[0])
	assert.Equal(t, api.Completion{FinalText: "Hello", Sources: []api.Source{{URL: "https://a.example"}}}, frags[1])
	assert.Equal(t, "secret", rec.body["api_key"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, strings.Contains(logs.String(), "relay shutting down"))
}
