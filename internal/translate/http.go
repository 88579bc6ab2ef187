package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP translates through a local sidecar service (e.g. an OPUS-MT or
// LibreTranslate instance) speaking a simple JSON protocol.
type HTTP struct {
	endpoint string
	source   string
	target   string
	client   *http.Client
}

// NewHTTP creates a sidecar translation backend
func NewHTTP(endpoint, sourceLang, targetLang string) *HTTP {
	return &HTTP{
		endpoint: endpoint,
		source:   sourceLang,
		target:   targetLang,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the backend name
func (h *HTTP) Name() string {
	return "http"
}

// Start is a no-op; the sidecar is probed on first use
func (h *HTTP) Start() error {
	return nil
}

// Stop closes idle connections
func (h *HTTP) Stop() error {
	h.client.CloseIdleConnections()
	return nil
}

type httpRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
}

type httpReply struct {
	Translation string `json:"translation"`
}

// Translate posts the text to the sidecar and returns its translation
func (h *HTTP) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(httpRequest{Text: text, Source: h.source, Target: h.target})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation sidecar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation sidecar returned %d: %s", resp.StatusCode, string(msg))
	}

	var decoded httpReply
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}
	return decoded.Translation, nil
}
