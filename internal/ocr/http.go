package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"
)

// httpRequestMeta is the metadata field sent alongside the frame
type httpRequestMeta struct {
	Languages []string `json:"languages"`
}

// httpResponse is the sidecar response envelope
type httpResponse struct {
	Results []Result `json:"results"`
}

// HTTPBackend sends frames to an external OCR sidecar (e.g. a
// PaddleOCR or manga-ocr service) as multipart uploads.
type HTTPBackend struct {
	endpoint  string
	languages []string
	client    *http.Client
}

// NewHTTPBackend creates an OCR backend talking to an HTTP sidecar
func NewHTTPBackend(endpoint string, languages []string) *HTTPBackend {
	return &HTTPBackend{
		endpoint:  endpoint,
		languages: languages,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Name returns the backend name
func (b *HTTPBackend) Name() string {
	return "http"
}

// Start is a no-op; the sidecar is probed on first use
func (b *HTTPBackend) Start() error {
	return nil
}

// Stop closes idle connections
func (b *HTTPBackend) Stop() error {
	b.client.CloseIdleConnections()
	return nil
}

// Recognize uploads the frame and decodes the sidecar's results
func (b *HTTPBackend) Recognize(img image.Image) ([]Result, error) {
	var frame bytes.Buffer
	if err := png.Encode(&frame, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", "frame.png")
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := io.Copy(part, &frame); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	meta, _ := json.Marshal(httpRequestMeta{Languages: b.languages})
	if err := writer.WriteField("meta", string(meta)); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, b.endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR sidecar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("OCR sidecar returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return decoded.Results, nil
}
