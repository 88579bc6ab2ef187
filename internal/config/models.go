package config

// OverlayMode selects how translations are rendered over the capture
type OverlayMode string

const (
	OverlayModeBanner  OverlayMode = "banner"  // fixed subtitle bar
	OverlayModeInplace OverlayMode = "inplace" // labels at each OCR region
)

// Valid reports whether the mode is a known overlay mode
func (m OverlayMode) Valid() bool {
	return m == OverlayModeBanner || m == OverlayModeInplace
}

// Bounds represents window or region geometry in screen coordinates
type Bounds struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// WindowInfo represents information about a window
type WindowInfo struct {
	ID      uint32 `json:"id"`
	Title   string `json:"title"`
	Class   string `json:"class,omitempty"`
	PID     int    `json:"pid,omitempty"`
	Bounds  Bounds `json:"bounds"`
	Desktop int    `json:"desktop,omitempty"` // -1 means all desktops/sticky
}

// Zone is a rectangular exclusion region expressed as fractions (0.0-1.0)
// of the captured frame, so it survives window resizes.
type Zone struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// CaptureConfig controls the background capture stream
type CaptureConfig struct {
	IntervalMS int `json:"interval_ms" yaml:"interval_ms"`
}

// OCRConfig controls text recognition
type OCRConfig struct {
	Backend             string             `json:"backend" yaml:"backend"`
	Endpoint            string             `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Languages           []string           `json:"languages" yaml:"languages"`
	IntervalMS          int                `json:"interval_ms" yaml:"interval_ms"`
	Confidence          float64            `json:"confidence" yaml:"confidence"`
	ConfidencePerWindow map[string]float64 `json:"confidence_per_window,omitempty" yaml:"confidence_per_window,omitempty"`
	ExclusionZones      map[string][]Zone  `json:"exclusion_zones,omitempty" yaml:"exclusion_zones,omitempty"`
	MinScale            int                `json:"min_scale,omitempty" yaml:"min_scale,omitempty"`
	HashDistance        int                `json:"hash_distance" yaml:"hash_distance"`
}

// CacheConfig controls the translation cache
type CacheConfig struct {
	Size       int     `json:"size" yaml:"size"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
	Path       string  `json:"path,omitempty" yaml:"path,omitempty"`
}

// TranslateConfig controls the translation backend
type TranslateConfig struct {
	Backend      string      `json:"backend" yaml:"backend"`
	Endpoint     string      `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	SourceLang   string      `json:"source_lang" yaml:"source_lang"`
	TargetLang   string      `json:"target_lang" yaml:"target_lang"`
	DeepLAuthKey string      `json:"deepl_auth_key,omitempty" yaml:"deepl_auth_key,omitempty"`
	Cache        CacheConfig `json:"cache" yaml:"cache"`
}

// OverlayConfig controls overlay rendering
type OverlayConfig struct {
	Mode              OverlayMode `json:"mode" yaml:"mode"`
	FontSize          int         `json:"font_size" yaml:"font_size"`
	FontColor         string      `json:"font_color" yaml:"font_color"`
	BackgroundColor   string      `json:"background_color" yaml:"background_color"`
	BackgroundOpacity float64     `json:"background_opacity" yaml:"background_opacity"`
	BannerX           *int        `json:"banner_x,omitempty" yaml:"banner_x,omitempty"`
	BannerY           *int        `json:"banner_y,omitempty" yaml:"banner_y,omitempty"`
}

// Config represents the application configuration
type Config struct {
	WindowTitle string          `json:"window_title" yaml:"window_title"`
	Capture     CaptureConfig   `json:"capture" yaml:"capture"`
	OCR         OCRConfig       `json:"ocr" yaml:"ocr"`
	Translate   TranslateConfig `json:"translate" yaml:"translate"`
	Overlay     OverlayConfig   `json:"overlay" yaml:"overlay"`
	ServerPort  int             `json:"server_port" yaml:"server_port"`
	LogLevel    string          `json:"log_level" yaml:"log_level"`
}
