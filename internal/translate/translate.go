package translate

import (
	"context"
	"fmt"

	"github.com/overlate/overlate/internal/config"
)

// Translator defines the interface for translation backends
type Translator interface {
	// Start initializes the backend
	Start() error

	// Stop releases backend resources
	Stop() error

	// Name returns the backend name
	Name() string

	// Translate converts text from the source to the target language
	Translate(ctx context.Context, text string) (string, error)
}

// New creates the translation backend named in the configuration
func New(cfg config.TranslateConfig) (Translator, error) {
	switch cfg.Backend {
	case "", "deepl":
		if cfg.DeepLAuthKey == "" {
			return nil, fmt.Errorf("deepl backend requires an auth key")
		}
		return NewDeepL(cfg.DeepLAuthKey, cfg.SourceLang, cfg.TargetLang), nil
	case "google":
		return NewGoogle(cfg.SourceLang, cfg.TargetLang), nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("http translation backend requires an endpoint")
		}
		return NewHTTP(cfg.Endpoint, cfg.SourceLang, cfg.TargetLang), nil
	default:
		return nil, fmt.Errorf("unknown translation backend: %s", cfg.Backend)
	}
}
