package capture

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
	"github.com/overlate/overlate/internal/window"
	"github.com/rs/zerolog"
)

// WindowCapture resolves a window by title and keeps a capture stream
// alive against it. When the window is destroyed (games often tear down
// and recreate their window when switching display modes) it re-resolves
// by title on every check until the window reappears, then rebuilds the
// stream. No backoff: a recreated window should be picked up within one
// check interval.
type WindowCapture struct {
	windows  *window.Manager
	capturer Capturer
	title    string
	interval time.Duration
	log      *zerolog.Logger

	mu        sync.RWMutex
	stream    *Stream
	info      *config.WindowInfo
	lastFrame *image.RGBA
	lastTime  time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewWindowCapture creates a window capture for the given title
func NewWindowCapture(windows *window.Manager, capturer Capturer, title string, interval time.Duration) *WindowCapture {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &WindowCapture{
		windows:  windows,
		capturer: capturer,
		title:    title,
		interval: interval,
		log:      logger.WithComponent("window-capture"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start resolves the window and begins capturing. Failure to find the
// window is not fatal: the monitor keeps looking for it.
func (w *WindowCapture) Start() error {
	if w.title == "" {
		return fmt.Errorf("no window title configured")
	}

	if err := w.resolve(); err != nil {
		w.log.Warn().
			Str("title", w.title).
			Err(err).
			Msg("Target window not found yet, waiting for it to appear")
	}

	go w.monitor()
	return nil
}

// Stop tears down the stream and the monitor goroutine
func (w *WindowCapture) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	<-w.done

	w.mu.Lock()
	if w.stream != nil {
		w.stream.Stop()
		w.stream = nil
	}
	w.mu.Unlock()
}

// Title returns the configured target title
func (w *WindowCapture) Title() string {
	return w.title
}

// Window returns the resolved window, or nil if not yet found. Bounds
// are refreshed from the backend; if the refresh fails the previous
// bounds are kept until the recovered window reports its own.
func (w *WindowCapture) Window() *config.WindowInfo {
	w.mu.RLock()
	info := w.info
	w.mu.RUnlock()
	if info == nil {
		return nil
	}

	current := *info
	if bounds, err := w.windows.Bounds(info.ID); err == nil {
		current.Bounds = *bounds
		w.mu.Lock()
		w.info.Bounds = *bounds
		w.mu.Unlock()
	}
	return &current
}

// Frame returns the latest captured frame. Through an invalidation and
// rebuild the previous frame is served until the new stream produces one.
func (w *WindowCapture) Frame() (*image.RGBA, time.Time) {
	w.mu.RLock()
	stream := w.stream
	w.mu.RUnlock()

	if stream != nil {
		if frame, at := stream.Frame(); frame != nil {
			w.mu.Lock()
			w.lastFrame = frame
			w.lastTime = at
			w.mu.Unlock()
			return frame, at
		}
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastFrame, w.lastTime
}

// Active reports whether a valid stream is currently capturing
func (w *WindowCapture) Active() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stream != nil && !w.stream.Invalid()
}

// FPS returns the capture rate of the current stream
func (w *WindowCapture) FPS() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stream == nil {
		return 0
	}
	return w.stream.FPS()
}

// monitor watches for stream invalidation and rebuilds
func (w *WindowCapture) monitor() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.mu.RLock()
			healthy := w.stream != nil && !w.stream.Invalid()
			w.mu.RUnlock()
			if healthy {
				continue
			}

			if err := w.resolve(); err != nil {
				w.log.Debug().
					Str("title", w.title).
					Err(err).
					Msg("Window still missing")
			}
		}
	}
}

// resolve finds the window by title and swaps in a fresh stream
func (w *WindowCapture) resolve() error {
	info, err := w.windows.FindByTitle(w.title)
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.stream
	w.stream = NewStream(w.capturer, info, w.interval)
	w.info = info
	w.stream.Start()
	w.mu.Unlock()

	if old != nil {
		old.Stop()
		w.log.Info().
			Uint32("window_id", info.ID).
			Str("title", info.Title).
			Msg("Window recovered, capture stream rebuilt")
	} else {
		w.log.Info().
			Uint32("window_id", info.ID).
			Str("title", info.Title).
			Int("width", info.Bounds.Width).
			Int("height", info.Bounds.Height).
			Msg("Capture stream started")
	}
	return nil
}
