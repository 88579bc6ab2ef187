//go:build linux

package window

import "os"

// candidateBackends returns backends in preference order for this session.
// Wayland sessions try KWin first; X11 sessions go straight to X11.
// XWayland keeps the X11 backend viable as a fallback on Wayland.
func candidateBackends() []Backend {
	if os.Getenv("XDG_SESSION_TYPE") == "wayland" || os.Getenv("WAYLAND_DISPLAY") != "" {
		return []Backend{NewKWinBackend(), NewX11Backend()}
	}
	return []Backend{NewX11Backend(), NewKWinBackend()}
}
