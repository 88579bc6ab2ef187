package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/overlate/overlate/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Overlate configuration",
	Long:  `View and manage Overlate configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Example: `  # Show configuration as YAML (default)
  overlate config show

  # Show configuration as JSON
  overlate config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a configuration value and persist it.

Supported keys: window_title, server_port, log_level, overlay_mode,
ocr_confidence, target_lang, source_lang, translate_backend.`,
	Example: `  # Set the capture target
  overlate config set window_title "Final Fantasy"

  # Switch to in-place overlay rendering
  overlate config set overlay_mode inplace

  # Raise the OCR confidence threshold
  overlate config set ocr_confidence 0.75`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

var configFormat string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch configFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", configFormat)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch key {
	case "window_title":
		err = configMgr.SetWindowTitle(value)
	case "server_port":
		port, perr := strconv.Atoi(value)
		if perr != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port: %s", value)
		}
		err = configMgr.SetPort(port)
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		err = configMgr.SetLogLevel(value)
	case "overlay_mode":
		mode := config.OverlayMode(value)
		if !mode.Valid() {
			return fmt.Errorf("invalid overlay mode: %s (use: banner or inplace)", value)
		}
		err = configMgr.SetOverlayMode(mode)
	case "ocr_confidence":
		conf, perr := strconv.ParseFloat(value, 64)
		if perr != nil || conf < 0 || conf > 1 {
			return fmt.Errorf("invalid confidence: %s (use 0.0-1.0)", value)
		}
		cfg := configMgr.Get()
		cfg.OCR.Confidence = conf
		err = configMgr.Update(cfg)
	case "target_lang", "source_lang", "translate_backend":
		cfg := configMgr.Get()
		switch key {
		case "target_lang":
			cfg.Translate.TargetLang = value
		case "source_lang":
			cfg.Translate.SourceLang = value
		case "translate_backend":
			cfg.Translate.Backend = value
		}
		err = configMgr.Update(cfg)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}
