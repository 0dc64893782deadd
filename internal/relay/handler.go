// Package relay is the server-side hop between a chat client and the chat
// backend. It adds the backend credential to each request so that clients
// never hold it, and streams the backend's SSE response back unchanged.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"crawlchat/internal/logging"
)

// ErrMissingCredential means the relay has no backend credential configured.
var ErrMissingCredential = errors.New("API key not configured")

// CredentialFunc returns the backend credential, or "" when none is set.
type CredentialFunc func() string

// EnvCredential reads the credential from an environment variable on every
// request.
func EnvCredential(name string) CredentialFunc {
	return func() string { return os.Getenv(name) }
}

// Handler relays POSTed chat requests to a fixed upstream.
type Handler struct {
	upstream   string
	credential CredentialFunc
	httpClient *http.Client
}

func NewHandler(upstream string, credential CredentialFunc) *Handler {
	return &Handler{
		upstream:   upstream,
		credential: credential,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithHTTPClient replaces the client used for upstream requests.
func (h *Handler) WithHTTPClient(c *http.Client) *Handler {
	h.httpClient = c
	return h
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	key := ""
	if h.credential != nil {
		key = h.credential()
	}
	if key == "" {
		logging.Error("relay: %v", ErrMissingCredential)
		writeError(w, http.StatusInternalServerError, "Server configuration error: "+ErrMissingCredential.Error())
		return
	}

	payload, err := decodeObject(r.Body)
	if err != nil {
		logging.Debug("relay: rejecting body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	payload["api_key"] = key

	body, err := json.Marshal(payload)
	if err != nil {
		writeInternal(w, fmt.Errorf("encoding request: %w", err))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstream, bytes.NewReader(body))
	if err != nil {
		writeInternal(w, fmt.Errorf("creating request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	logging.Info("relay: forwarding request to %s", h.upstream)
	resp, err := h.httpClient.Do(req)
	if err != nil {
		logging.Error("relay: upstream request failed: %v", err)
		writeInternal(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logging.Error("relay: backend error %d: %s", resp.StatusCode, excerpt)
		writeError(w, resp.StatusCode, fmt.Sprintf("Backend error: %d", resp.StatusCode))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	setCORS(w)
	w.WriteHeader(http.StatusOK)

	n, err := copyFlushing(w, resp.Body)
	if err != nil {
		logging.Warn("relay: stream ended after %d bytes: %v", n, err)
		return
	}
	logging.Info("relay: streamed %d bytes", n)
}

// decodeObject reads a JSON object. Anything else, null included, is an
// error.
func decodeObject(r io.Reader) (map[string]any, error) {
	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return payload, nil
}

// copyFlushing copies src to w byte for byte, flushing after every read.
func copyFlushing(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("relay: writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeInternal(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}
