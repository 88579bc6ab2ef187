package overlay

import (
	"image"
	"image/draw"
	"strings"
	"sync"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// Manager composites translation widgets onto captured frames. One of
// the two widgets renders at a time, selected by the overlay mode.
type Manager struct {
	mu      sync.RWMutex
	mode    config.OverlayMode
	banner  *BannerWidget
	inplace *InplaceWidget
}

// NewManager creates an overlay manager styled from the configuration
func NewManager(cfg config.OverlayConfig) *Manager {
	textColor := config.ParseHexColor(cfg.FontColor)
	bgColor := config.ParseHexColor(cfg.BackgroundColor)

	mode := cfg.Mode
	if !mode.Valid() {
		mode = config.OverlayModeBanner
	}

	m := &Manager{
		mode:    mode,
		banner:  NewBannerWidget(textColor, bgColor, cfg.BackgroundOpacity),
		inplace: NewInplaceWidget(textColor, bgColor, cfg.BackgroundOpacity),
	}

	scale := fontScale(cfg.FontSize)
	m.banner.SetFontScale(scale)
	m.inplace.SetFontScale(scale)

	if cfg.BannerX != nil && cfg.BannerY != nil {
		m.banner.SetCustomPosition(*cfg.BannerX, *cfg.BannerY)
	}

	return m
}

// Mode returns the active overlay mode
func (m *Manager) Mode() config.OverlayMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetMode switches the overlay rendering mode
func (m *Manager) SetMode(mode config.OverlayMode) {
	if !mode.Valid() {
		return
	}
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()

	logger.WithComponent("overlay").Info().
		Str("mode", string(mode)).
		Msg("Overlay mode changed")
}

// Banner returns the banner widget
func (m *Manager) Banner() *BannerWidget {
	return m.banner
}

// SetTranslations updates both widgets from the latest pipeline output.
// The banner shows all current translations joined; in-place mode keeps
// them at their source positions.
func (m *Manager) SetTranslations(labels []Label) {
	m.inplace.SetLabels(labels)

	texts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Text != "" {
			texts = append(texts, l.Text)
		}
	}
	m.banner.SetText(strings.Join(texts, "  "))
}

// Clear removes all rendered translations
func (m *Manager) Clear() {
	m.SetTranslations(nil)
}

// Compose returns a copy of the frame with the active widget rendered
// on top. The input frame is never modified.
func (m *Manager) Compose(frame *image.RGBA) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)

	m.mu.RLock()
	mode := m.mode
	m.mu.RUnlock()

	switch mode {
	case config.OverlayModeInplace:
		m.inplace.Render(out)
	default:
		m.banner.Render(out)
	}
	return out
}
