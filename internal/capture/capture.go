package capture

import (
	"errors"
	"image"

	"github.com/overlate/overlate/internal/config"
)

// ErrWindowGone indicates the target window no longer exists and the
// capture stream must be rebuilt against a re-resolved window.
var ErrWindowGone = errors.New("window no longer exists")

// Capturer defines the interface for grabbing frames of a window
type Capturer interface {
	// Start initializes the capturer
	Start() error

	// Stop releases capturer resources
	Stop() error

	// Name returns the capturer name
	Name() string

	// CaptureWindow grabs the current contents of the window.
	// Returns ErrWindowGone when the window has been destroyed.
	CaptureWindow(window *config.WindowInfo) (*image.RGBA, error)
}

// cropImage returns the sub-image of img starting at (x, y), re-based
// to a zero origin.
func cropImage(img *image.RGBA, x, y int) *image.RGBA {
	if x <= 0 && y <= 0 {
		return img
	}
	b := img.Bounds()
	if x >= b.Dx() || y >= b.Dy() {
		return img
	}

	sub := img.SubImage(image.Rect(b.Min.X+x, b.Min.Y+y, b.Max.X, b.Max.Y)).(*image.RGBA)
	out := image.NewRGBA(image.Rect(0, 0, sub.Bounds().Dx(), sub.Bounds().Dy()))
	for row := 0; row < out.Bounds().Dy(); row++ {
		srcOff := sub.PixOffset(sub.Bounds().Min.X, sub.Bounds().Min.Y+row)
		dstOff := out.PixOffset(0, row)
		copy(out.Pix[dstOff:dstOff+out.Stride], sub.Pix[srcOff:srcOff+out.Stride])
	}
	return out
}
