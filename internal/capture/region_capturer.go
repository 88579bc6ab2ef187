package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// BoundsFunc reports the current screen bounds of a window, or an error
// when the window no longer exists.
type BoundsFunc func(id uint32) (*config.Bounds, error)

// RegionCapturer grabs the screen region under the target window. Used
// on platforms without a direct window-capture path (macOS, Windows,
// and X11 sessions without usable window pixmaps). Unlike direct window
// capture it picks up anything drawn over the window.
type RegionCapturer struct {
	bounds        BoundsFunc
	contentOffset OffsetFunc
}

// NewRegionCapturer creates a capturer that reads the screen region at
// the window's current bounds. contentOffset may be nil.
func NewRegionCapturer(bounds BoundsFunc, contentOffset OffsetFunc) *RegionCapturer {
	return &RegionCapturer{
		bounds:        bounds,
		contentOffset: contentOffset,
	}
}

// Start checks that at least one display is available
func (c *RegionCapturer) Start() error {
	if screenshot.NumActiveDisplays() == 0 {
		return fmt.Errorf("no active displays")
	}
	return nil
}

// Stop releases resources (none held)
func (c *RegionCapturer) Stop() error {
	return nil
}

// Name returns the capturer name
func (c *RegionCapturer) Name() string {
	return "region"
}

// CaptureWindow grabs the screen region at the window's current bounds
func (c *RegionCapturer) CaptureWindow(window *config.WindowInfo) (*image.RGBA, error) {
	bounds, err := c.bounds(window.ID)
	if err != nil {
		return nil, fmt.Errorf("window bounds unavailable: %w", ErrWindowGone)
	}
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("window has zero size")
	}

	rect := image.Rect(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height)
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		logger.WithComponent("region-capturer").Debug().
			Err(err).
			Int("x", bounds.X).Int("y", bounds.Y).
			Int("width", bounds.Width).Int("height", bounds.Height).
			Msg("Region capture failed")
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}

	if c.contentOffset != nil {
		if offX, offY, err := c.contentOffset(window.ID); err == nil {
			img = cropImage(img, offX, offY)
		}
	}

	return img, nil
}
