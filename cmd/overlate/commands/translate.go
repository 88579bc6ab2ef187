package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/translate"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate TEXT",
	Short: "Translate a single piece of text",
	Long: `Translate text with the configured backend, using and updating the
persistent translation cache. Useful for checking credentials and
language settings before starting the full pipeline.`,
	Example: `  # Translate with the configured backend
  overlate translate "こんにちは世界"

  # Bypass the cache
  overlate translate --no-cache "こんにちは世界"`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

var translateNoCache bool

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().BoolVar(&translateNoCache, "no-cache", false, "skip the translation cache")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	translator, err := translate.New(cfg.Translate)
	if err != nil {
		return fmt.Errorf("failed to initialize translator: %w", err)
	}

	if !translateNoCache {
		storePath := cfg.Translate.Cache.Path
		if storePath == "" {
			storePath = filepath.Join(filepath.Dir(configMgr.GetConfigPath()), "translations.db")
		}
		store, serr := translate.OpenStore(storePath)
		if serr != nil {
			return fmt.Errorf("failed to open translation store: %w", serr)
		}
		translator = translate.NewCachedTranslator(translator, cfg.Translate, store)
	}

	if err := translator.Start(); err != nil {
		return fmt.Errorf("failed to start translator: %w", err)
	}
	defer translator.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	translation, err := translator.Translate(ctx, args[0])
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	fmt.Println(translation)
	return nil
}
