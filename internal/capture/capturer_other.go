//go:build !linux

package capture

import (
	"github.com/overlate/overlate/internal/window"
)

// NewCapturer returns the screen-region capturer used on macOS and Windows
func NewCapturer(windows *window.Manager) (Capturer, error) {
	return NewRegionCapturer(windows.Bounds, windows.ContentOffset), nil
}
