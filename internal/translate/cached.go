package translate

import (
	"context"
	"strings"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
	"github.com/rs/zerolog"
)

// CachedTranslator wraps a backend with the fuzzy LRU cache and
// optional SQLite persistence.
type CachedTranslator struct {
	inner      Translator
	cache      *Cache
	store      *Store
	sourceLang string
	targetLang string
	log        *zerolog.Logger
}

// NewCachedTranslator wraps the backend. store may be nil to disable
// persistence. When a store is given, its most recent entries seed the
// in-memory cache.
func NewCachedTranslator(inner Translator, cfg config.TranslateConfig, store *Store) *CachedTranslator {
	t := &CachedTranslator{
		inner:      inner,
		cache:      NewCache(cfg.Cache.Size, cfg.Cache.Similarity),
		store:      store,
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
		log:        logger.WithComponent("translate"),
	}

	if store != nil {
		records, err := store.Load(cfg.SourceLang, cfg.TargetLang, cfg.Cache.Size)
		if err != nil {
			t.log.Warn().Err(err).Msg("Failed to load persisted translations")
		} else {
			for _, r := range records {
				t.cache.Put(r.Source, r.Translation)
			}
			if len(records) > 0 {
				t.log.Info().Int("count", len(records)).Msg("Translation cache seeded from store")
			}
		}
	}

	return t
}

// Name returns the wrapped backend name
func (t *CachedTranslator) Name() string {
	return t.inner.Name()
}

// Start starts the wrapped backend
func (t *CachedTranslator) Start() error {
	return t.inner.Start()
}

// Stop stops the wrapped backend and the store
func (t *CachedTranslator) Stop() error {
	err := t.inner.Stop()
	if t.store != nil {
		if cerr := t.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// CacheLen returns the number of in-memory cached translations
func (t *CachedTranslator) CacheLen() int {
	return t.cache.Len()
}

// Translate returns a cached translation when available, otherwise
// asks the backend and caches the result.
func (t *CachedTranslator) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if translation, ok := t.cache.Get(text); ok {
		return translation, nil
	}

	translation, err := t.inner.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	if translation == "" {
		return "", nil
	}

	t.cache.Put(text, translation)
	if t.store != nil {
		if err := t.store.Save(text, t.sourceLang, t.targetLang, translation); err != nil {
			t.log.Warn().Err(err).Msg("Failed to persist translation")
		}
	}
	return translation, nil
}
