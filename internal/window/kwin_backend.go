package window

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// KWin D-Bus constants
const (
	kwinService   = "org.kde.KWin"
	kwinPath      = "/KWin"
	kwinInterface = "org.kde.KWin"
)

// KWinBackend discovers windows on KDE Wayland sessions through KWin's
// D-Bus interface, using kdotool for enumeration. Windows running under
// XWayland report their X11 ID so they can still be captured directly.
type KWinBackend struct {
	conn *dbus.Conn

	// Map from hashed numeric ID back to the KWin UUID string
	mu    sync.RWMutex
	uuids map[uint32]string
}

// NewKWinBackend creates a new KWin backend
func NewKWinBackend() *KWinBackend {
	return &KWinBackend{
		uuids: make(map[uint32]string),
	}
}

// Name returns the backend name
func (b *KWinBackend) Name() string {
	return "kwin"
}

// Connect connects to the session bus and verifies KWin is present
func (b *KWinBackend) Connect() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return fmt.Errorf("failed to list D-Bus names: %w", err)
	}

	kwinFound := false
	for _, name := range names {
		if name == kwinService {
			kwinFound = true
			break
		}
	}
	if !kwinFound {
		conn.Close()
		return fmt.Errorf("KWin service not found on D-Bus")
	}

	if _, err := exec.LookPath("kdotool"); err != nil {
		conn.Close()
		return fmt.Errorf("kdotool not found in PATH (required for KWin window enumeration): %w", err)
	}

	b.conn = conn
	logger.WithComponent("kwin-backend").Info().Msg("Connected to KWin D-Bus service")
	return nil
}

// Close closes the D-Bus connection
func (b *KWinBackend) Close() error {
	if b.conn != nil {
		err := b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}

// ListWindows enumerates windows via kdotool
func (b *KWinBackend) ListWindows() ([]*config.WindowInfo, error) {
	log := logger.WithComponent("kwin-backend")

	cmd := exec.Command("kdotool", "search", "--name", ".")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("kdotool search failed: %w", err)
	}

	windows := make([]*config.WindowInfo, 0)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		uuid := strings.TrimSpace(scanner.Text())
		if uuid == "" {
			continue
		}

		info, err := b.windowInfo(uuid)
		if err != nil {
			log.Debug().Str("uuid", uuid).Err(err).Msg("Failed to get window info")
			continue
		}
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}

	return windows, nil
}

// Bounds returns the window geometry by its numeric ID
func (b *KWinBackend) Bounds(id uint32) (*config.Bounds, error) {
	b.mu.RLock()
	uuid, ok := b.uuids[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown window id %d", id)
	}

	geomCmd := exec.Command("kdotool", "getwindowgeometry", uuid)
	geomOutput, err := geomCmd.Output()
	if err != nil {
		return nil, fmt.Errorf("kdotool getwindowgeometry failed: %w", err)
	}

	bounds := parseKdotoolGeometry(string(geomOutput))
	if bounds.Width == 0 && bounds.Height == 0 {
		return nil, fmt.Errorf("window %s reports no geometry", uuid)
	}
	return &bounds, nil
}

// ContentOffset always returns zero: KWin reports client geometry, which
// excludes server-side decorations.
func (b *KWinBackend) ContentOffset(id uint32) (int, int, error) {
	return 0, 0, nil
}

// windowInfo collects title, class, PID and geometry for one window
func (b *KWinBackend) windowInfo(uuid string) (*config.WindowInfo, error) {
	nameOutput, _ := exec.Command("kdotool", "getwindowname", uuid).Output()
	name := strings.TrimSpace(string(nameOutput))

	classOutput, _ := exec.Command("kdotool", "getwindowclassname", uuid).Output()
	class := strings.TrimSpace(string(classOutput))

	pidOutput, _ := exec.Command("kdotool", "getwindowpid", uuid).Output()
	pid, _ := strconv.Atoi(strings.TrimSpace(string(pidOutput)))

	geomOutput, _ := exec.Command("kdotool", "getwindowgeometry", uuid).Output()
	bounds := parseKdotoolGeometry(string(geomOutput))

	id := hashStringToUint32(uuid)

	// XWayland windows expose a real X11 ID through D-Bus; prefer it so
	// the capture layer can address the window directly.
	windowPath := "/org/kde/KWin/Window/" + uuid
	if xid, err := b.windowXID(windowPath); err == nil && xid > 0 {
		id = xid
	}

	b.mu.Lock()
	b.uuids[id] = uuid
	b.mu.Unlock()

	return &config.WindowInfo{
		ID:      id,
		Title:   name,
		Class:   class,
		PID:     pid,
		Bounds:  bounds,
		Desktop: b.windowDesktop(uuid),
	}, nil
}

// windowXID reads the X11 window ID of an XWayland window over D-Bus
func (b *KWinBackend) windowXID(windowPath string) (uint32, error) {
	obj := b.conn.Object(kwinService, dbus.ObjectPath(windowPath))

	for _, prop := range []string{"org.kde.KWin.Window.windowId", "org.kde.KWin.Window.internalId"} {
		xid, err := obj.GetProperty(prop)
		if err != nil {
			continue
		}
		switch v := xid.Value().(type) {
		case uint32:
			return v, nil
		case int32:
			return uint32(v), nil
		case uint64:
			return uint32(v), nil
		case int64:
			return uint32(v), nil
		}
	}

	return 0, fmt.Errorf("no XID found")
}

// windowDesktop queries the window's desktop via KWin's getWindowInfo
func (b *KWinBackend) windowDesktop(uuid string) int {
	obj := b.conn.Object(kwinService, kwinPath)

	var result map[string]dbus.Variant
	if err := obj.Call(kwinInterface+".getWindowInfo", 0, uuid).Store(&result); err != nil {
		return 0
	}

	if v, ok := result["desktop"]; ok {
		switch d := v.Value().(type) {
		case int32:
			return int(d)
		case int64:
			return int(d)
		case float64:
			return int(d)
		}
	}
	return 0
}

// parseKdotoolGeometry parses kdotool getwindowgeometry output:
// "Window <id>\n  Position: X,Y\n  Geometry: WxH"
func parseKdotoolGeometry(output string) config.Bounds {
	var bounds config.Bounds

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Position:") {
			parts := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, "Position:")), ",")
			if len(parts) >= 2 {
				bounds.X, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
				bounds.Y, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
			}
		} else if strings.HasPrefix(line, "Geometry:") {
			parts := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, "Geometry:")), "x")
			if len(parts) >= 2 {
				bounds.Width, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
				bounds.Height, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
			}
		}
	}

	return bounds
}

// hashStringToUint32 maps a KWin UUID to a stable numeric window ID
func hashStringToUint32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
