package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepL translates through the DeepL REST API (free tier endpoint)
type DeepL struct {
	authKey string
	source  string
	target  string
	client  *http.Client
}

// NewDeepL creates a DeepL translation backend
func NewDeepL(authKey, sourceLang, targetLang string) *DeepL {
	return &DeepL{
		authKey: authKey,
		source:  sourceLang,
		target:  targetLang,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the backend name
func (d *DeepL) Name() string {
	return "deepl"
}

// Start validates the configured language tags
func (d *DeepL) Start() error {
	if d.source != "" {
		if _, err := language.Parse(d.source); err != nil {
			return fmt.Errorf("invalid source language %q: %w", d.source, err)
		}
	}
	if _, err := language.Parse(d.target); err != nil {
		return fmt.Errorf("invalid target language %q: %w", d.target, err)
	}
	return nil
}

// Stop closes idle connections
func (d *DeepL) Stop() error {
	d.client.CloseIdleConnections()
	return nil
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate sends a form-encoded request to the DeepL API. An empty
// source language lets DeepL auto-detect.
func (d *DeepL) Translate(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("auth_key", d.authKey)
	form.Set("target_lang", strings.ToUpper(d.target))
	if d.source != "" {
		form.Set("source_lang", strings.ToUpper(d.source))
	}
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deeplAPIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("deepl returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode deepl response: %w", err)
	}
	if len(decoded.Translations) == 0 {
		return "", nil
	}
	return decoded.Translations[0].Text, nil
}
