//go:build windows

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

// WindowsBackend lists top-level windows through a PowerShell helper that
// P/Invokes user32. The window handle doubles as the window ID.
type WindowsBackend struct {
	mu      sync.RWMutex
	offsets map[uint32][2]int
}

// NewWindowsBackend creates a new Windows window backend
func NewWindowsBackend() *WindowsBackend {
	return &WindowsBackend{
		offsets: make(map[uint32][2]int),
	}
}

// Name returns the backend name
func (b *WindowsBackend) Name() string {
	return "windows"
}

// Connect verifies PowerShell is available
func (b *WindowsBackend) Connect() error {
	if _, err := exec.LookPath("powershell"); err != nil {
		return fmt.Errorf("powershell not found: %w", err)
	}
	return nil
}

// Close releases resources (no persistent connection)
func (b *WindowsBackend) Close() error {
	return nil
}

const listWindowsPS = `
Add-Type @"
using System;
using System.Runtime.InteropServices;
public class Win32 {
    [DllImport("user32.dll")] public static extern bool GetWindowRect(IntPtr hWnd, out RECT rect);
    [DllImport("user32.dll")] public static extern bool GetClientRect(IntPtr hWnd, out RECT rect);
    [DllImport("user32.dll")] public static extern bool ClientToScreen(IntPtr hWnd, ref POINT pt);
    [StructLayout(LayoutKind.Sequential)] public struct RECT { public int Left, Top, Right, Bottom; }
    [StructLayout(LayoutKind.Sequential)] public struct POINT { public int X, Y; }
}
"@
Get-Process | Where-Object { $_.MainWindowTitle -ne "" } | ForEach-Object {
    $h = $_.MainWindowHandle
    $r = New-Object Win32+RECT
    if ([Win32]::GetWindowRect($h, [ref]$r)) {
        $p = New-Object Win32+POINT
        [Win32]::ClientToScreen($h, [ref]$p) | Out-Null
        "{0}|{1}|{2}|{3}|{4}|{5}|{6}|{7}|{8}|{9}" -f [int64]$h, $_.Id, $_.ProcessName,
            $r.Left, $r.Top, ($r.Right - $r.Left), ($r.Bottom - $r.Top),
            ($p.X - $r.Left), ($p.Y - $r.Top), $_.MainWindowTitle
    }
}`

// ListWindows enumerates processes with a main window
func (b *WindowsBackend) ListWindows() ([]*config.WindowInfo, error) {
	windows, err := b.enumerate()
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (b *WindowsBackend) enumerate() ([]*config.WindowInfo, error) {
	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", listWindowsPS)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		logger.WithComponent("windows-backend").Error().
			Err(err).
			Str("stderr", stderr.String()).
			Msg("PowerShell window enumeration failed")
		return nil, fmt.Errorf("powershell enumeration failed: %w", err)
	}

	windows := make([]*config.WindowInfo, 0)
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		// handle|pid|process|x|y|width|height|offsetX|offsetY|title
		fields := strings.SplitN(line, "|", 10)
		if len(fields) != 10 {
			continue
		}

		handle, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil || handle == 0 {
			continue
		}
		pid, _ := strconv.Atoi(fields[1])
		x, _ := strconv.Atoi(fields[3])
		y, _ := strconv.Atoi(fields[4])
		w, _ := strconv.Atoi(fields[5])
		h, _ := strconv.Atoi(fields[6])
		offX, _ := strconv.Atoi(fields[7])
		offY, _ := strconv.Atoi(fields[8])
		title := fields[9]
		if title == "" || w <= 0 || h <= 0 {
			continue
		}

		id := uint32(handle)
		b.mu.Lock()
		b.offsets[id] = [2]int{offX, offY}
		b.mu.Unlock()

		windows = append(windows, &config.WindowInfo{
			ID:     id,
			Title:  title,
			Class:  fields[2],
			PID:    pid,
			Bounds: config.Bounds{X: x, Y: y, Width: w, Height: h},
		})
	}

	return windows, nil
}

// Bounds re-enumerates and returns the current bounds of the window
func (b *WindowsBackend) Bounds(id uint32) (*config.Bounds, error) {
	windows, err := b.enumerate()
	if err != nil {
		return nil, err
	}
	for _, w := range windows {
		if w.ID == id {
			bounds := w.Bounds
			return &bounds, nil
		}
	}
	return nil, fmt.Errorf("window %d no longer exists", id)
}

// ContentOffset returns the client area offset recorded during enumeration
func (b *WindowsBackend) ContentOffset(id uint32) (int, int, error) {
	b.mu.RLock()
	off, ok := b.offsets[id]
	b.mu.RUnlock()
	if !ok {
		return 0, 0, fmt.Errorf("window %d not seen yet", id)
	}
	return off[0], off[1], nil
}
