package capture

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
	"github.com/rs/zerolog"
)

const (
	// Number of capture durations averaged for the slow-capture warning
	slowSampleCount = 5
	// Average capture duration above which a warning is logged
	slowThreshold = 100 * time.Millisecond
)

// Stream continuously captures a single window on a background goroutine.
// Only the most recent frame is kept; consumers polling slower than the
// capture interval simply see the latest frame (last write wins).
//
// Once the window is invalidated the stream keeps its last good frame
// and stays invalid until torn down; recovery happens one level up by
// re-resolving the window and building a fresh stream.
type Stream struct {
	capturer Capturer
	window   *config.WindowInfo
	interval time.Duration
	log      *zerolog.Logger

	mu        sync.RWMutex
	frame     *image.RGBA
	frameTime time.Time
	invalid   bool
	fps       float64

	fpsCount int
	fpsStart time.Time
	slow     []time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewStream creates a capture stream for the given window
func NewStream(capturer Capturer, window *config.WindowInfo, interval time.Duration) *Stream {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Stream{
		capturer: capturer,
		window:   window,
		interval: interval,
		log:      logger.WithComponent("capture-stream"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the capture goroutine
func (s *Stream) Start() {
	s.fpsStart = time.Now()
	go s.run()
}

// Stop terminates the capture goroutine and waits for it to exit
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.done
}

// Window returns the window this stream captures
func (s *Stream) Window() *config.WindowInfo {
	return s.window
}

// Frame returns the most recent frame and its capture time. The frame
// is nil until the first successful capture. Callers must not mutate
// the returned image.
func (s *Stream) Frame() (*image.RGBA, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.frameTime
}

// Invalid reports whether the window has been invalidated and the
// stream needs to be rebuilt
func (s *Stream) Invalid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalid
}

// FPS returns the measured capture rate over the last second
func (s *Stream) FPS() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fps
}

func (s *Stream) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Capture immediately so the first frame doesn't wait a full tick
	s.captureOnce()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.captureOnce()
		}
	}
}

func (s *Stream) captureOnce() {
	start := time.Now()
	img, err := s.capturer.CaptureWindow(s.window)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrWindowGone) {
			if !s.invalid {
				s.log.Warn().
					Uint32("window_id", s.window.ID).
					Str("title", s.window.Title).
					Msg("Window invalidated, awaiting recovery")
			}
			s.invalid = true
		} else {
			s.log.Debug().Err(err).Uint32("window_id", s.window.ID).Msg("Capture failed")
		}
		return
	}
	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		s.invalid = true
		return
	}

	// The window may have been invalidated while this frame was in
	// flight; a frame captured from a dying window can be stale or
	// black, so drop it rather than publish it.
	if s.invalid {
		return
	}

	s.frame = img
	s.frameTime = time.Now()
	s.trackRate(elapsed)
}

// trackRate updates the FPS measurement and the slow-capture warning.
// Caller holds s.mu.
func (s *Stream) trackRate(elapsed time.Duration) {
	s.fpsCount++
	if since := time.Since(s.fpsStart); since >= time.Second {
		s.fps = float64(s.fpsCount) / since.Seconds()
		s.fpsCount = 0
		s.fpsStart = time.Now()
	}

	s.slow = append(s.slow, elapsed)
	if len(s.slow) >= slowSampleCount {
		var total time.Duration
		for _, d := range s.slow {
			total += d
		}
		if avg := total / time.Duration(len(s.slow)); avg > slowThreshold {
			s.log.Warn().
				Dur("avg_capture", avg).
				Dur("interval", s.interval).
				Msg("Capture is slower than the configured interval allows")
		}
		s.slow = s.slow[:0]
	}
}
