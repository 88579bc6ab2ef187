package window

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// Minimum size for a child window to count as the content area rather
// than a decoration or input-only helper window.
const minContentSize = 100

// X11Backend discovers windows through X11/XWayland using EWMH properties
type X11Backend struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo

	mu    sync.Mutex
	atoms map[string]xproto.Atom
}

// NewX11Backend creates a new X11 window backend
func NewX11Backend() *X11Backend {
	return &X11Backend{
		atoms: make(map[string]xproto.Atom),
	}
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// Connect establishes the X server connection
func (b *X11Backend) Connect() error {
	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	b.conn = conn
	b.screen = screen
	b.root = screen.Root

	logger.WithComponent("x11-backend").Debug().
		Uint32("root", uint32(b.root)).
		Uint16("screen_width", screen.WidthInPixels).
		Uint16("screen_height", screen.HeightInPixels).
		Msg("Connected to X server")

	return nil
}

// Close closes the X server connection
func (b *X11Backend) Close() error {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}

// ListWindows returns all viewable application windows
func (b *X11Backend) ListWindows() ([]*config.WindowInfo, error) {
	if b.conn == nil {
		return nil, fmt.Errorf("not connected to X server")
	}

	ids, err := b.clientList()
	if err != nil {
		// Window managers without EWMH support: fall back to the raw tree
		logger.WithComponent("x11-backend").Debug().
			Err(err).
			Msg("_NET_CLIENT_LIST unavailable, falling back to QueryTree")
		ids, err = b.treeWindows()
		if err != nil {
			return nil, err
		}
	}

	windows := make([]*config.WindowInfo, 0, len(ids))
	for _, id := range ids {
		attrs, err := xproto.GetWindowAttributes(b.conn, id).Reply()
		if err != nil {
			continue
		}
		if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		if !b.isNormalWindow(id) {
			continue
		}

		title := b.windowTitle(id)
		if title == "" {
			continue
		}

		bounds, err := b.Bounds(uint32(id))
		if err != nil {
			continue
		}

		windows = append(windows, &config.WindowInfo{
			ID:      uint32(id),
			Title:   title,
			Class:   b.windowClass(id),
			PID:     b.windowPID(id),
			Bounds:  *bounds,
			Desktop: b.windowDesktop(id),
		})
	}

	return windows, nil
}

// Bounds returns the window geometry in absolute screen coordinates
func (b *X11Backend) Bounds(id uint32) (*config.Bounds, error) {
	if b.conn == nil {
		return nil, fmt.Errorf("not connected to X server")
	}

	win := xproto.Window(id)
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	// Geometry is relative to the parent; translate to root coordinates
	trans, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	return &config.Bounds{
		X:      int(trans.DstX),
		Y:      int(trans.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// ContentOffset returns the offset of the content area within the window.
// Reparenting window managers wrap clients in a frame; CSD clients draw
// their own title bar and report it via _GTK_FRAME_EXTENTS.
func (b *X11Backend) ContentOffset(id uint32) (int, int, error) {
	if b.conn == nil {
		return 0, 0, fmt.Errorf("not connected to X server")
	}

	win := xproto.Window(id)

	// Fullscreen windows have no decorations
	if full, err := b.isFullscreen(win); err == nil && full {
		return 0, 0, nil
	}

	if child, ok := b.contentChild(win); ok {
		trans, err := xproto.TranslateCoordinates(b.conn, child, win, 0, 0).Reply()
		if err == nil {
			return int(trans.DstX), int(trans.DstY), nil
		}
	}

	if extents := b.propCardinals(win, "_GTK_FRAME_EXTENTS"); len(extents) == 4 {
		// left, right, top, bottom
		return int(extents[0]), int(extents[2]), nil
	}

	return 0, 0, nil
}

// contentChild returns the largest viewable child window, used to locate
// the content area under a window-manager frame.
func (b *X11Backend) contentChild(win xproto.Window) (xproto.Window, bool) {
	tree, err := xproto.QueryTree(b.conn, win).Reply()
	if err != nil {
		return 0, false
	}

	var best xproto.Window
	var bestArea int
	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(b.conn, child).Reply()
		if err != nil || attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}
		if int(geom.Width) < minContentSize || int(geom.Height) < minContentSize {
			continue
		}
		area := int(geom.Width) * int(geom.Height)
		if area > bestArea {
			best = child
			bestArea = area
		}
	}

	return best, bestArea > 0
}

// isFullscreen reports whether the window covers the whole screen.
// A small tolerance absorbs panel struts and rounding from scaled displays.
func (b *X11Backend) isFullscreen(win xproto.Window) (bool, error) {
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return false, err
	}

	const tolerance = 50
	dw := int(b.screen.WidthInPixels) - int(geom.Width)
	dh := int(b.screen.HeightInPixels) - int(geom.Height)
	return dw >= -tolerance && dw <= tolerance && dh >= -tolerance && dh <= tolerance, nil
}

// clientList returns the window manager's client list from the root window
func (b *X11Backend) clientList() ([]xproto.Window, error) {
	atom, err := b.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	prop, err := xproto.GetProperty(
		b.conn, false, b.root, atom,
		xproto.AtomWindow, 0, 1<<20,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to read _NET_CLIENT_LIST: %w", err)
	}
	if prop.Format != 32 || len(prop.Value) == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST not set")
	}

	ids := make([]xproto.Window, 0, len(prop.Value)/4)
	for i := 0; i+4 <= len(prop.Value); i += 4 {
		ids = append(ids, xproto.Window(binary.LittleEndian.Uint32(prop.Value[i:])))
	}
	return ids, nil
}

// treeWindows returns the direct children of the root window
func (b *X11Backend) treeWindows() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(b.conn, b.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	return tree.Children, nil
}

// isNormalWindow reports whether _NET_WM_WINDOW_TYPE marks this as a
// regular application window. Windows without the property count as normal.
func (b *X11Backend) isNormalWindow(win xproto.Window) bool {
	typeAtom, err := b.atom("_NET_WM_WINDOW_TYPE")
	if err != nil {
		return true
	}
	normalAtom, err := b.atom("_NET_WM_WINDOW_TYPE_NORMAL")
	if err != nil {
		return true
	}

	prop, err := xproto.GetProperty(
		b.conn, false, win, typeAtom,
		xproto.AtomAtom, 0, 16,
	).Reply()
	if err != nil || prop.Format != 32 || len(prop.Value) == 0 {
		return true
	}

	for i := 0; i+4 <= len(prop.Value); i += 4 {
		if xproto.Atom(binary.LittleEndian.Uint32(prop.Value[i:])) == normalAtom {
			return true
		}
	}
	return false
}

// windowTitle returns the window title, preferring the UTF-8 EWMH name
func (b *X11Backend) windowTitle(win xproto.Window) string {
	if title := b.propString(win, "_NET_WM_NAME", "UTF8_STRING"); title != "" {
		return title
	}
	return b.propString(win, "WM_NAME", "")
}

// windowClass returns the second (class) field of WM_CLASS
func (b *X11Backend) windowClass(win xproto.Window) string {
	prop, err := xproto.GetProperty(
		b.conn, false, win, xproto.AtomWmClass,
		xproto.AtomString, 0, 1024,
	).Reply()
	if err != nil || len(prop.Value) == 0 {
		return ""
	}

	// WM_CLASS is two NUL-terminated strings: instance, class
	var fields []string
	start := 0
	for i, c := range prop.Value {
		if c == 0 {
			fields = append(fields, string(prop.Value[start:i]))
			start = i + 1
		}
	}
	if len(fields) >= 2 {
		return fields[1]
	}
	if len(fields) == 1 {
		return fields[0]
	}
	return ""
}

// windowPID returns the _NET_WM_PID of the window, or 0
func (b *X11Backend) windowPID(win xproto.Window) int {
	if vals := b.propCardinals(win, "_NET_WM_PID"); len(vals) > 0 {
		return int(vals[0])
	}
	return 0
}

// windowDesktop returns the _NET_WM_DESKTOP of the window.
// 0xFFFFFFFF (sticky) maps to -1.
func (b *X11Backend) windowDesktop(win xproto.Window) int {
	vals := b.propCardinals(win, "_NET_WM_DESKTOP")
	if len(vals) == 0 {
		return 0
	}
	if vals[0] == 0xFFFFFFFF {
		return -1
	}
	return int(vals[0])
}

// propString reads a string property. An empty propType matches any type.
func (b *X11Backend) propString(win xproto.Window, name, propType string) string {
	atom, err := b.atom(name)
	if err != nil {
		return ""
	}

	reqType := xproto.Atom(xproto.GetPropertyTypeAny)
	if propType != "" {
		t, err := b.atom(propType)
		if err != nil {
			return ""
		}
		reqType = t
	}

	prop, err := xproto.GetProperty(
		b.conn, false, win, atom,
		reqType, 0, 1<<16,
	).Reply()
	if err != nil || len(prop.Value) == 0 {
		return ""
	}
	return string(prop.Value)
}

// propCardinals reads a 32-bit CARDINAL array property
func (b *X11Backend) propCardinals(win xproto.Window, name string) []uint32 {
	atom, err := b.atom(name)
	if err != nil {
		return nil
	}

	prop, err := xproto.GetProperty(
		b.conn, false, win, atom,
		xproto.AtomCardinal, 0, 64,
	).Reply()
	if err != nil || prop.Format != 32 || len(prop.Value) == 0 {
		return nil
	}

	vals := make([]uint32, 0, len(prop.Value)/4)
	for i := 0; i+4 <= len(prop.Value); i += 4 {
		vals = append(vals, binary.LittleEndian.Uint32(prop.Value[i:]))
	}
	return vals
}

// atom interns an atom by name, caching the result
func (b *X11Backend) atom(name string) (xproto.Atom, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if atom, ok := b.atoms[name]; ok {
		return atom, nil
	}

	reply, err := xproto.InternAtom(b.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	if reply.Atom == xproto.AtomNone {
		return 0, fmt.Errorf("atom %s does not exist", name)
	}

	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}
