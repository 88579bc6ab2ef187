package window

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/kbinani/screenshot"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// Manager resolves and tracks application windows through a platform backend
type Manager struct {
	backend Backend
}

// NewManager connects the first available backend for this platform.
// A non-empty backendName forces that backend.
func NewManager(backendName string) (*Manager, error) {
	log := logger.WithComponent("window-manager")

	var lastErr error
	for _, backend := range candidateBackends() {
		if backendName != "" && backend.Name() != backendName {
			continue
		}
		if err := backend.Connect(); err != nil {
			log.Debug().
				Str("backend", backend.Name()).
				Err(err).
				Msg("Backend unavailable")
			lastErr = err
			continue
		}
		log.Info().Str("backend", backend.Name()).Msg("Window backend connected")
		return &Manager{backend: backend}, nil
	}

	if backendName != "" {
		return nil, fmt.Errorf("window backend %q unavailable: %w", backendName, lastErr)
	}
	return nil, fmt.Errorf("no window backend available: %w", lastErr)
}

// NewManagerWithBackend wraps an already connected backend
func NewManagerWithBackend(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// Backend returns the active backend
func (m *Manager) Backend() Backend {
	return m.backend
}

// Close closes the backend connection
func (m *Manager) Close() error {
	return m.backend.Close()
}

// ListWindows returns all visible application windows, sorted by title
// then ID so repeated calls return a stable order.
func (m *Manager) ListWindows() ([]*config.WindowInfo, error) {
	windows, err := m.backend.ListWindows()
	if err != nil {
		return nil, err
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Title != windows[j].Title {
			return windows[i].Title < windows[j].Title
		}
		return windows[i].ID < windows[j].ID
	})
	return windows, nil
}

// FindByTitle returns the first window whose title contains the given
// substring, case-insensitively.
func (m *Manager) FindByTitle(title string) (*config.WindowInfo, error) {
	if title == "" {
		return nil, fmt.Errorf("empty window title")
	}

	windows, err := m.ListWindows()
	if err != nil {
		return nil, err
	}

	if w := MatchByTitle(windows, title); w != nil {
		return w, nil
	}
	return nil, fmt.Errorf("no window matching %q found", title)
}

// MatchByTitle returns the first window whose title contains the
// substring, case-insensitively, or nil.
func MatchByTitle(windows []*config.WindowInfo, title string) *config.WindowInfo {
	needle := strings.ToLower(title)
	for _, w := range windows {
		if strings.Contains(strings.ToLower(w.Title), needle) {
			return w
		}
	}
	return nil
}

// Bounds returns the current bounds of a window
func (m *Manager) Bounds(id uint32) (*config.Bounds, error) {
	return m.backend.Bounds(id)
}

// ContentOffset returns the content area offset of a window.
// Fullscreen windows have no decorations.
func (m *Manager) ContentOffset(id uint32) (int, int, error) {
	bounds, err := m.backend.Bounds(id)
	if err == nil && IsFullscreen(bounds) {
		return 0, 0, nil
	}
	return m.backend.ContentOffset(id)
}

// IsFullscreen reports whether bounds match any display, within a
// tolerance that absorbs panels and fractional-scaling rounding.
func IsFullscreen(bounds *config.Bounds) bool {
	const tolerance = 50

	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		display := screenshot.GetDisplayBounds(i)
		if approxEqual(bounds.Width, display.Dx(), tolerance) &&
			approxEqual(bounds.Height, display.Dy(), tolerance) {
			return true
		}
	}
	return false
}

// DisplayContaining returns the bounds of the display containing the
// given point, defaulting to the primary display.
func DisplayContaining(x, y int) config.Bounds {
	var primary image.Rectangle
	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		display := screenshot.GetDisplayBounds(i)
		if i == 0 {
			primary = display
		}
		if image.Pt(x, y).In(display) {
			return config.Bounds{
				X:      display.Min.X,
				Y:      display.Min.Y,
				Width:  display.Dx(),
				Height: display.Dy(),
			}
		}
	}
	return config.Bounds{
		X:      primary.Min.X,
		Y:      primary.Min.Y,
		Width:  primary.Dx(),
		Height: primary.Dy(),
	}
}

func approxEqual(a, b, tolerance int) bool {
	d := a - b
	return d >= -tolerance && d <= tolerance
}
