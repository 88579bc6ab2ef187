package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "overlate",
		Short: "Overlate - Live screen translation overlay",
		Long: `Overlate captures a target application window, recognizes on-screen
text with OCR and renders a translated overlay on top of the video feed.

Features:
  • Capture any window by title (X11, KWin/Wayland, macOS, Windows)
  • Japanese OCR via Tesseract or a remote OCR service
  • DeepL, Google Translate or custom translation backends
  • Banner or in-place overlay rendering
  • Persistent translation cache with fuzzy matching
  • MJPEG stream and REST API for browser viewing`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/overlate/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("window", "", "target window title (substring match)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("window_title", rootCmd.PersistentFlags().Lookup("window"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
