package capture

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/window"
)

// switchableBackend simulates a window that can disappear and reappear
// with a new ID, like a game recreating its window on a mode switch.
type switchableBackend struct {
	mu      sync.Mutex
	current *config.WindowInfo
}

func (b *switchableBackend) Connect() error { return nil }
func (b *switchableBackend) Close() error   { return nil }
func (b *switchableBackend) Name() string   { return "switchable" }

func (b *switchableBackend) set(w *config.WindowInfo) {
	b.mu.Lock()
	b.current = w
	b.mu.Unlock()
}

func (b *switchableBackend) ListWindows() ([]*config.WindowInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil, nil
	}
	w := *b.current
	return []*config.WindowInfo{&w}, nil
}

func (b *switchableBackend) Bounds(id uint32) (*config.Bounds, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.current.ID != id {
		return nil, fmt.Errorf("window %d not found", id)
	}
	bounds := b.current.Bounds
	return &bounds, nil
}

func (b *switchableBackend) ContentOffset(id uint32) (int, int, error) {
	return 0, 0, nil
}

// trackingCapturer captures whatever window it is asked for, failing
// with ErrWindowGone for windows the backend no longer knows.
type trackingCapturer struct {
	backend *switchableBackend
}

func (c *trackingCapturer) Start() error { return nil }
func (c *trackingCapturer) Stop() error  { return nil }
func (c *trackingCapturer) Name() string { return "tracking" }

func (c *trackingCapturer) CaptureWindow(w *config.WindowInfo) (*image.RGBA, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.backend.current == nil || c.backend.current.ID != w.ID {
		return nil, ErrWindowGone
	}
	return solidFrame(color.RGBA{uint8(w.ID), 0, 0, 255}, 4, 4), nil
}

func TestWindowCaptureRecovery(t *testing.T) {
	backend := &switchableBackend{}
	backend.set(&config.WindowInfo{
		ID:     1,
		Title:  "My Game",
		Bounds: config.Bounds{Width: 640, Height: 480},
	})

	mgr := window.NewManagerWithBackend(backend)
	wc := NewWindowCapture(mgr, &trackingCapturer{backend: backend}, "my game", 10*time.Millisecond)
	if err := wc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer wc.Stop()

	waitFor(t, time.Second, func() bool {
		frame, _ := wc.Frame()
		return frame != nil && frame.Pix[0] == 1
	})
	if !wc.Active() {
		t.Fatal("capture should be active")
	}

	// Window disappears
	backend.set(nil)
	waitFor(t, time.Second, func() bool { return !wc.Active() })

	// Previous frame survives the outage
	if frame, _ := wc.Frame(); frame == nil {
		t.Fatal("last frame should be retained while the window is gone")
	}

	// Window reappears under a new ID, same title
	backend.set(&config.WindowInfo{
		ID:     2,
		Title:  "My Game",
		Bounds: config.Bounds{Width: 1280, Height: 720},
	})

	waitFor(t, time.Second, func() bool {
		frame, _ := wc.Frame()
		return frame != nil && frame.Pix[0] == 2
	})

	info := wc.Window()
	if info == nil || info.ID != 2 {
		t.Fatalf("Window() = %+v, want recovered window with ID 2", info)
	}
	if info.Bounds.Width != 1280 {
		t.Errorf("recovered bounds width = %d, want 1280", info.Bounds.Width)
	}
}

func TestWindowCaptureStartsWithoutWindow(t *testing.T) {
	backend := &switchableBackend{}
	mgr := window.NewManagerWithBackend(backend)
	wc := NewWindowCapture(mgr, &trackingCapturer{backend: backend}, "nothing", 10*time.Millisecond)

	if err := wc.Start(); err != nil {
		t.Fatalf("Start should not fail when the window is missing: %v", err)
	}
	defer wc.Stop()

	if wc.Active() {
		t.Error("capture should not be active without a window")
	}

	// Window appears later
	backend.set(&config.WindowInfo{ID: 7, Title: "Nothing Else Matters"})
	waitFor(t, time.Second, func() bool { return wc.Active() })
}

func TestWindowCaptureRequiresTitle(t *testing.T) {
	backend := &switchableBackend{}
	mgr := window.NewManagerWithBackend(backend)
	wc := NewWindowCapture(mgr, &trackingCapturer{backend: backend}, "", 10*time.Millisecond)
	if err := wc.Start(); err == nil {
		t.Error("Start with empty title should fail")
	}
}
