package translate

import (
	"context"
	"fmt"
	"html"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
)

// Google translates through the Google Cloud Translation API.
// Credentials come from the standard GOOGLE_APPLICATION_CREDENTIALS
// environment.
type Google struct {
	sourceLang string
	targetLang string
	client     *translate.Client
	source     language.Tag
	target     language.Tag
}

// NewGoogle creates a Google Cloud translation backend
func NewGoogle(sourceLang, targetLang string) *Google {
	return &Google{
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// Name returns the backend name
func (g *Google) Name() string {
	return "google"
}

// Start parses the language tags and creates the API client
func (g *Google) Start() error {
	target, err := language.Parse(g.targetLang)
	if err != nil {
		return fmt.Errorf("invalid target language %q: %w", g.targetLang, err)
	}
	g.target = target

	if g.sourceLang != "" {
		source, err := language.Parse(g.sourceLang)
		if err != nil {
			return fmt.Errorf("invalid source language %q: %w", g.sourceLang, err)
		}
		g.source = source
	}

	client, err := translate.NewClient(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create translation client: %w", err)
	}
	g.client = client
	return nil
}

// Stop closes the API client
func (g *Google) Stop() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Translate sends the text to the Cloud Translation API. The response
// is HTML-escaped by the API and unescaped here.
func (g *Google) Translate(ctx context.Context, text string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("google backend not started")
	}

	var opts *translate.Options
	if g.sourceLang != "" {
		opts = &translate.Options{Source: g.source}
	}

	translations, err := g.client.Translate(ctx, []string{text}, g.target, opts)
	if err != nil {
		return "", fmt.Errorf("google translate failed: %w", err)
	}
	if len(translations) == 0 {
		return "", nil
	}
	return html.UnescapeString(translations[0].Text), nil
}
