//go:build darwin

package window

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// Standard macOS title bar height in points. Applied as the content
// offset for non-fullscreen windows.
const darwinTitleBarHeight = 28

// DarwinBackend lists windows through System Events via osascript.
// Requires the Accessibility permission for the host process.
type DarwinBackend struct {
	mu     sync.RWMutex
	bounds map[uint32]config.Bounds
}

// NewDarwinBackend creates a new macOS window backend
func NewDarwinBackend() *DarwinBackend {
	return &DarwinBackend{
		bounds: make(map[uint32]config.Bounds),
	}
}

// Name returns the backend name
func (b *DarwinBackend) Name() string {
	return "macos"
}

// Connect verifies osascript is available
func (b *DarwinBackend) Connect() error {
	if _, err := exec.LookPath("osascript"); err != nil {
		return fmt.Errorf("osascript not found: %w", err)
	}
	return nil
}

// Close releases resources (no persistent connection)
func (b *DarwinBackend) Close() error {
	return nil
}

const listWindowsScript = `
set output to ""
tell application "System Events"
	repeat with proc in (application processes whose visible is true)
		set procName to name of proc
		set procID to unix id of proc
		repeat with w in windows of proc
			set winName to name of w
			set {px, py} to position of w
			set {sw, sh} to size of w
			set output to output & procName & tab & procID & tab & px & tab & py & tab & sw & tab & sh & tab & winName & linefeed
		end repeat
	end repeat
end tell
return output`

// ListWindows enumerates visible application windows via System Events
func (b *DarwinBackend) ListWindows() ([]*config.WindowInfo, error) {
	cmd := exec.Command("osascript", "-e", listWindowsScript)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		logger.WithComponent("macos-backend").Error().
			Err(err).
			Str("stderr", stderr.String()).
			Msg("osascript failed (is Accessibility permission granted?)")
		return nil, fmt.Errorf("osascript failed: %w", err)
	}

	windows := make([]*config.WindowInfo, 0)
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		// procName, pid, x, y, width, height, title
		fields := strings.SplitN(line, "\t", 7)
		if len(fields) != 7 {
			continue
		}

		pid, _ := strconv.Atoi(fields[1])
		x, _ := strconv.Atoi(fields[2])
		y, _ := strconv.Atoi(fields[3])
		w, _ := strconv.Atoi(fields[4])
		h, _ := strconv.Atoi(fields[5])
		title := fields[6]
		if title == "" || w <= 0 || h <= 0 {
			continue
		}

		id := hashStringToUint32(fmt.Sprintf("%s/%d/%s", fields[0], pid, title))
		bounds := config.Bounds{X: x, Y: y, Width: w, Height: h}

		b.mu.Lock()
		b.bounds[id] = bounds
		b.mu.Unlock()

		windows = append(windows, &config.WindowInfo{
			ID:     id,
			Title:  title,
			Class:  fields[0],
			PID:    pid,
			Bounds: bounds,
		})
	}

	return windows, nil
}

// Bounds re-enumerates and returns the current bounds of the window
func (b *DarwinBackend) Bounds(id uint32) (*config.Bounds, error) {
	if _, err := b.ListWindows(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	bounds, ok := b.bounds[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("window %d no longer exists", id)
	}
	return &bounds, nil
}

// ContentOffset returns the title bar offset for non-fullscreen windows
func (b *DarwinBackend) ContentOffset(id uint32) (int, int, error) {
	return 0, darwinTitleBarHeight, nil
}
