package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/overlate/overlate/internal/config"
)

func TestNewBackendSelection(t *testing.T) {
	if _, err := New(config.TranslateConfig{Backend: "deepl", DeepLAuthKey: "key", TargetLang: "en"}); err != nil {
		t.Errorf("deepl: %v", err)
	}
	if _, err := New(config.TranslateConfig{Backend: "deepl"}); err == nil {
		t.Error("deepl without auth key should fail")
	}
	if _, err := New(config.TranslateConfig{Backend: "google", TargetLang: "en"}); err != nil {
		t.Errorf("google: %v", err)
	}
	if _, err := New(config.TranslateConfig{Backend: "http", Endpoint: "http://localhost:5000/translate"}); err != nil {
		t.Errorf("http: %v", err)
	}
	if _, err := New(config.TranslateConfig{Backend: "http"}); err == nil {
		t.Error("http without endpoint should fail")
	}
	if _, err := New(config.TranslateConfig{Backend: "babelfish"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestDeepLStartValidatesLanguages(t *testing.T) {
	if err := NewDeepL("key", "ja", "en").Start(); err != nil {
		t.Errorf("valid languages: %v", err)
	}
	if err := NewDeepL("key", "ja", "not-a-language-tag!").Start(); err == nil {
		t.Error("invalid target language should fail")
	}
}

func TestHTTPTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req httpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Source != "ja" || req.Target != "en" {
			t.Errorf("languages = %s→%s, want ja→en", req.Source, req.Target)
		}
		json.NewEncoder(w).Encode(httpReply{Translation: "Hello"})
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "ja", "en")
	got, err := h.Translate(context.Background(), "こんにちは")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hello" {
		t.Errorf("Translate = %q, want Hello", got)
	}
}

func TestHTTPTranslateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "ja", "en")
	if _, err := h.Translate(context.Background(), "text"); err == nil {
		t.Error("non-200 response should return an error")
	}
}

// countingTranslator counts how often the backend is actually called
type countingTranslator struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (c *countingTranslator) Start() error { return nil }
func (c *countingTranslator) Stop() error  { return nil }
func (c *countingTranslator) Name() string { return "counting" }

func (c *countingTranslator) Translate(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.reply, c.err
}

func (c *countingTranslator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func cacheConfig() config.TranslateConfig {
	return config.TranslateConfig{
		SourceLang: "ja",
		TargetLang: "en",
		Cache:      config.CacheConfig{Size: 100, Similarity: 0.9},
	}
}

func TestCachedTranslatorAvoidsRepeatCalls(t *testing.T) {
	inner := &countingTranslator{reply: "Hello"}
	ct := NewCachedTranslator(inner, cacheConfig(), nil)

	for i := 0; i < 3; i++ {
		got, err := ct.Translate(context.Background(), "こんにちは")
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if got != "Hello" {
			t.Fatalf("Translate = %q, want Hello", got)
		}
	}

	if inner.callCount() != 1 {
		t.Errorf("backend called %d times, want 1", inner.callCount())
	}
}

func TestCachedTranslatorEmptyInput(t *testing.T) {
	inner := &countingTranslator{reply: "x"}
	ct := NewCachedTranslator(inner, cacheConfig(), nil)

	got, err := ct.Translate(context.Background(), "   ")
	if err != nil || got != "" {
		t.Fatalf("Translate(blank) = %q, %v; want empty, nil", got, err)
	}
	if inner.callCount() != 0 {
		t.Error("blank input should not reach the backend")
	}
}

func TestCachedTranslatorErrorNotCached(t *testing.T) {
	inner := &countingTranslator{err: fmt.Errorf("quota exceeded")}
	ct := NewCachedTranslator(inner, cacheConfig(), nil)

	if _, err := ct.Translate(context.Background(), "text"); err == nil {
		t.Fatal("backend error should propagate")
	}

	inner.mu.Lock()
	inner.err = nil
	inner.reply = "ok"
	inner.mu.Unlock()

	got, err := ct.Translate(context.Background(), "text")
	if err != nil || got != "ok" {
		t.Fatalf("retry after error = %q, %v", got, err)
	}
	if inner.callCount() != 2 {
		t.Errorf("backend called %d times, want 2 (errors must not cache)", inner.callCount())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	if err := store.Save("こんにちは", "ja", "en", "Hello"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Upsert overwrites
	if err := store.Save("こんにちは", "ja", "en", "Hi"); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}
	if err := store.Save("さよなら", "ja", "en", "Goodbye"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Other language pair must not leak into ja→en loads
	if err := store.Save("bonjour", "fr", "en", "hello"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	records, err := store.Load("ja", "en", 100)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Load returned %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Source == "こんにちは" && r.Translation != "Hi" {
			t.Errorf("upsert did not overwrite: %+v", r)
		}
	}

	n, err := store.Count()
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen and seed a cached translator from the store
	store, err = OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	inner := &countingTranslator{reply: "never"}
	ct := NewCachedTranslator(inner, cacheConfig(), store)
	defer ct.Stop()

	got, err := ct.Translate(context.Background(), "さよなら")
	if err != nil || got != "Goodbye" {
		t.Fatalf("seeded Translate = %q, %v; want Goodbye", got, err)
	}
	if inner.callCount() != 0 {
		t.Error("seeded cache should answer without calling the backend")
	}
}
