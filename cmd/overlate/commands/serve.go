package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/overlate/overlate/internal/api"
	"github.com/overlate/overlate/internal/capture"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
	"github.com/overlate/overlate/internal/ocr"
	"github.com/overlate/overlate/internal/output"
	"github.com/overlate/overlate/internal/overlay"
	"github.com/overlate/overlate/internal/pipeline"
	"github.com/overlate/overlate/internal/translate"
	"github.com/overlate/overlate/internal/window"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Overlate translation pipeline and server",
	Long: `Start the capture, OCR and translation pipeline together with the
HTTP server. The translated video feed is available as an MJPEG stream
in any browser.`,
	Example: `  # Translate a game window, view at http://localhost:8080
  overlate serve --window "Final Fantasy"

  # Use a custom port and debug logging
  overlate serve --window "Steins;Gate" --port 9090 --log-level debug

  # Show the feed in a local X11 preview window as well
  overlate serve --window "Persona" --preview`,
	RunE: runServe,
}

var (
	serveBackend string
	servePreview bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "window backend (x11 or kwin, default autodetect)")
	serveCmd.Flags().BoolVar(&servePreview, "preview", false, "show the feed in a local X11 window")
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Flag overrides
	if viper.IsSet("server_port") && viper.GetInt("server_port") > 0 {
		configMgr.SetPort(viper.GetInt("server_port"))
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		configMgr.SetLogLevel(viper.GetString("log_level"))
	}
	if viper.IsSet("window_title") && viper.GetString("window_title") != "" {
		configMgr.SetWindowTitle(viper.GetString("window_title"))
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")

	if cfg.WindowTitle == "" {
		return fmt.Errorf("no target window configured (use --window or set window_title in %s)", configMgr.GetConfigPath())
	}

	// Window backend
	windowMgr, err := window.NewManager(serveBackend)
	if err != nil {
		return fmt.Errorf("failed to initialize window backend: %w", err)
	}
	defer windowMgr.Close()
	log.Info().Str("backend", windowMgr.Backend().Name()).Msg("Window backend connected")

	// Capture
	capturer, err := capture.NewCapturer(windowMgr)
	if err != nil {
		return fmt.Errorf("failed to initialize capturer: %w", err)
	}
	if err := capturer.Start(); err != nil {
		return fmt.Errorf("failed to start capturer: %w", err)
	}
	defer capturer.Stop()

	wc := capture.NewWindowCapture(windowMgr, capturer, cfg.WindowTitle,
		time.Duration(cfg.Capture.IntervalMS)*time.Millisecond)
	if err := wc.Start(); err != nil {
		return fmt.Errorf("failed to start window capture: %w", err)
	}
	defer wc.Stop()

	// OCR
	ocrBackend, err := ocr.New(cfg.OCR)
	if err != nil {
		return fmt.Errorf("failed to initialize OCR: %w", err)
	}
	if err := ocrBackend.Start(); err != nil {
		return fmt.Errorf("failed to start OCR backend: %w", err)
	}
	defer ocrBackend.Stop()

	// Translation, with cache persistence next to the config file
	translator, err := translate.New(cfg.Translate)
	if err != nil {
		return fmt.Errorf("failed to initialize translator: %w", err)
	}

	storePath := cfg.Translate.Cache.Path
	if storePath == "" {
		storePath = filepath.Join(filepath.Dir(configMgr.GetConfigPath()), "translations.db")
	}
	store, err := translate.OpenStore(storePath)
	if err != nil {
		log.Warn().Err(err).Str("path", storePath).Msg("Translation store unavailable, running without persistence")
		store = nil
	}

	cached := translate.NewCachedTranslator(translator, cfg.Translate, store)
	if err := cached.Start(); err != nil {
		return fmt.Errorf("failed to start translator: %w", err)
	}
	defer cached.Stop()

	// Overlay and outputs
	overlayMgr := overlay.NewManager(cfg.Overlay)

	mjpeg := output.NewMJPEGOutput(90)
	if err := mjpeg.Start(); err != nil {
		return fmt.Errorf("failed to start MJPEG output: %w", err)
	}
	defer mjpeg.Stop()

	outputs := []output.Output{mjpeg}
	if servePreview {
		preview := output.NewX11WindowOutput("overlate: " + cfg.WindowTitle)
		if err := preview.Start(); err != nil {
			log.Warn().Err(err).Msg("Preview window unavailable")
		} else {
			defer preview.Stop()
			outputs = append(outputs, preview)
		}
	}

	// Pipeline
	p := pipeline.New(wc, ocrBackend, cached, overlayMgr, outputs, configMgr)
	p.Start()
	defer p.Stop()

	// API server
	server := api.NewServer(windowMgr, configMgr, p, overlayMgr, mjpeg)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	log.Info().
		Str("window", cfg.WindowTitle).
		Str("ocr", ocrBackend.Name()).
		Str("translator", cached.Name()).
		Str("viewer", fmt.Sprintf("http://localhost:%d", cfg.ServerPort)).
		Msg("Overlate is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	return nil
}
