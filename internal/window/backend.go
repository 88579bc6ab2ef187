package window

import (
	"github.com/overlate/overlate/internal/config"
)

// Backend defines the interface for window discovery backends (X11, KWin,
// macOS/Windows shell-out).
type Backend interface {
	// Connect establishes connection to the display server
	Connect() error

	// Close closes the connection to the display server
	Close() error

	// ListWindows returns all visible application windows
	ListWindows() ([]*config.WindowInfo, error)

	// Bounds returns the current bounds of a window in absolute screen
	// coordinates, or an error if the window no longer exists
	Bounds(id uint32) (*config.Bounds, error)

	// ContentOffset returns the offset of the renderable content area
	// within the window's outer bounds (title bars, CSD decorations)
	ContentOffset(id uint32) (int, int, error)

	// Name returns the backend name (e.g., "x11", "kwin")
	Name() string
}
