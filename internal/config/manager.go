package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/overlate/overlate/internal/logger"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration loading, access and persistence
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configFile
// selects the default path under ~/.config/overlate.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "overlate")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("window_title", m.config.WindowTitle).
		Str("overlay_mode", string(m.config.Overlay.Mode)).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		WindowTitle: "",
		Capture: CaptureConfig{
			IntervalMS: 250,
		},
		OCR: OCRConfig{
			Backend:      "tesseract",
			Languages:    []string{"jpn"},
			IntervalMS:   500,
			Confidence:   0.6,
			MinScale:     2,
			HashDistance: 5,
		},
		Translate: TranslateConfig{
			Backend:    "deepl",
			SourceLang: "ja",
			TargetLang: "en",
			Cache: CacheConfig{
				Size:       1000,
				Similarity: 0.9,
			},
		},
		Overlay: OverlayConfig{
			Mode:              OverlayModeBanner,
			FontSize:          26,
			FontColor:         "#FFFFFF",
			BackgroundColor:   "#404040",
			BackgroundOpacity: 0.8,
		},
		ServerPort: 8080,
		LogLevel:   "info",
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if !cfg.Overlay.Mode.Valid() {
		logger.WithComponent("config").Warn().
			Str("mode", string(cfg.Overlay.Mode)).
			Msg("Invalid overlay mode, using banner")
		cfg.Overlay.Mode = OverlayModeBanner
	}
	if cfg.OCR.ExclusionZones == nil {
		cfg.OCR.ExclusionZones = map[string][]Zone{}
	}
	if cfg.OCR.ConfidencePerWindow == nil {
		cfg.OCR.ConfidencePerWindow = map[string]float64{}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration. The per-window
// override maps are copied too, so callers can hold the result while
// setters mutate the live config.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config

	if m.config.OCR.ConfidencePerWindow != nil {
		cfg.OCR.ConfidencePerWindow = make(map[string]float64, len(m.config.OCR.ConfidencePerWindow))
		for k, v := range m.config.OCR.ConfidencePerWindow {
			cfg.OCR.ConfidencePerWindow[k] = v
		}
	}
	if m.config.OCR.ExclusionZones != nil {
		cfg.OCR.ExclusionZones = make(map[string][]Zone, len(m.config.OCR.ExclusionZones))
		for k, v := range m.config.OCR.ExclusionZones {
			zones := make([]Zone, len(v))
			copy(zones, v)
			cfg.OCR.ExclusionZones[k] = zones
		}
	}
	return &cfg
}

// Save saves the current configuration to disk. Marshals under the
// read lock so a concurrent setter cannot mutate the override maps
// mid-serialization.
func (m *Manager) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	m.mu.RLock()
	cfg := m.config
	if cfg == nil {
		cfg = Defaults()
	}
	data, err := yaml.Marshal(cfg)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration and persists it
func (m *Manager) Update(cfg *Config) error {
	if !cfg.Overlay.Mode.Valid() {
		return fmt.Errorf("invalid overlay mode: %s", cfg.Overlay.Mode)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetWindowTitle sets the capture target window title
func (m *Manager) SetWindowTitle(title string) error {
	m.mu.Lock()
	m.config.WindowTitle = title
	m.mu.Unlock()
	return m.Save()
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
	return m.Save()
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
	return m.Save()
}

// SetOverlayMode switches the overlay rendering mode
func (m *Manager) SetOverlayMode(mode OverlayMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid overlay mode: %s", mode)
	}
	m.mu.Lock()
	m.config.Overlay.Mode = mode
	m.mu.Unlock()
	return m.Save()
}

// OCRConfidence returns the OCR confidence threshold for a window title,
// falling back to the global default when no override exists.
func (m *Manager) OCRConfidence(windowTitle string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.config.OCR.ConfidencePerWindow[windowTitle]; ok {
		return v
	}
	return m.config.OCR.Confidence
}

// SetOCRConfidence sets a per-window OCR confidence override. Setting a
// value equal to the global default removes the override.
func (m *Manager) SetOCRConfidence(windowTitle string, confidence float64) error {
	m.mu.Lock()
	if diff := confidence - m.config.OCR.Confidence; diff < 0.001 && diff > -0.001 {
		delete(m.config.OCR.ConfidencePerWindow, windowTitle)
	} else {
		if m.config.OCR.ConfidencePerWindow == nil {
			m.config.OCR.ConfidencePerWindow = make(map[string]float64)
		}
		m.config.OCR.ConfidencePerWindow[windowTitle] = confidence
	}
	m.mu.Unlock()
	return m.Save()
}

// ExclusionZones returns the exclusion zones configured for a window title
func (m *Manager) ExclusionZones(windowTitle string) []Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zones := m.config.OCR.ExclusionZones[windowTitle]
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

// SetExclusionZones replaces the exclusion zones for a window title.
// An empty slice removes the entry.
func (m *Manager) SetExclusionZones(windowTitle string, zones []Zone) error {
	m.mu.Lock()
	if len(zones) == 0 {
		delete(m.config.OCR.ExclusionZones, windowTitle)
	} else {
		if m.config.OCR.ExclusionZones == nil {
			m.config.OCR.ExclusionZones = make(map[string][]Zone)
		}
		m.config.OCR.ExclusionZones[windowTitle] = zones
	}
	m.mu.Unlock()
	return m.Save()
}

// SetBannerPosition stores a user-moved banner position
func (m *Manager) SetBannerPosition(x, y int) error {
	m.mu.Lock()
	m.config.Overlay.BannerX = &x
	m.config.Overlay.BannerY = &y
	m.mu.Unlock()
	return m.Save()
}

// ParseHexColor converts a "#RRGGBB" string to an opaque color.
// Invalid input falls back to white.
func ParseHexColor(s string) color.RGBA {
	if len(s) == 7 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.RGBA{255, 255, 255, 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
}
