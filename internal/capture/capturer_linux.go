//go:build linux

package capture

import (
	"github.com/overlate/overlate/internal/logger"
	"github.com/overlate/overlate/internal/window"
)

// NewCapturer returns the best capturer for this platform. Direct X11
// window capture is preferred; native Wayland windows fall back to
// screen-region capture.
func NewCapturer(windows *window.Manager) (Capturer, error) {
	c, err := NewX11Capturer(windows.ContentOffset)
	if err == nil {
		return c, nil
	}

	logger.WithComponent("capture").Warn().
		Err(err).
		Msg("X11 capture unavailable, falling back to region capture")
	return NewRegionCapturer(windows.Bounds, windows.ContentOffset), nil
}
