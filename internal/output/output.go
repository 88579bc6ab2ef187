package output

import (
	"image"
)

// Output defines the interface for composited frame sinks:
// - MJPEG HTTP stream (watch in a browser)
// - local X11 preview window
type Output interface {
	// Start initializes the output
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame sends an RGBA frame to the output
	WriteFrame(frame *image.RGBA) error

	// Name returns the output type name
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}
