package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/overlate/overlate/internal/logger"
)

// MJPEGOutput streams composited frames as Motion JPEG over HTTP, so
// the translated overlay can be watched in any browser tab.
type MJPEGOutput struct {
	quality int
	running bool
	mu      sync.RWMutex

	frameMu    sync.RWMutex
	lastJPEG   []byte
	lastUpdate time.Time

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
}

// NewMJPEGOutput creates a new MJPEG stream output
func NewMJPEGOutput(quality int) *MJPEGOutput {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &MJPEGOutput{
		quality: quality,
		clients: make(map[chan []byte]struct{}),
	}
}

// Start marks the output as running. The HTTP handlers are mounted
// separately by the API server.
func (m *MJPEGOutput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG output already running")
	}
	m.running = true
	m.frameCount = 0
	return nil
}

// Stop disconnects all clients
func (m *MJPEGOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("mjpeg").Info().
		Uint64("frames", m.frameCount).
		Msg("MJPEG output stopped")
	return nil
}

// Name returns the output type name
func (m *MJPEGOutput) Name() string {
	return "mjpeg"
}

// IsRunning returns true if the output is active
func (m *MJPEGOutput) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// ClientCount returns the number of connected stream clients
func (m *MJPEGOutput) ClientCount() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

// WriteFrame encodes the frame and broadcasts it. Slow clients skip
// frames rather than stall the broadcast.
func (m *MJPEGOutput) WriteFrame(frame *image.RGBA) error {
	if !m.IsRunning() {
		return fmt.Errorf("MJPEG output not running")
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: m.quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	m.frameMu.Lock()
	m.lastJPEG = jpegData
	m.lastUpdate = time.Now()
	m.frameCount++
	m.frameMu.Unlock()

	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- jpegData:
		default:
		}
	}
	m.clientsMu.RUnlock()
	return nil
}

// StreamHandler returns an http.Handler serving the multipart MJPEG
// stream. Mount at /stream.
func (m *MJPEGOutput) StreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		m.clientsMu.Lock()
		m.clients[frameChan] = struct{}{}
		count := len(m.clients)
		m.clientsMu.Unlock()

		log := logger.WithComponent("mjpeg")
		log.Info().Int("clients", count).Msg("Stream client connected")

		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, frameChan)
			count := len(m.clients)
			m.clientsMu.Unlock()
			log.Info().Int("clients", count).Msg("Stream client disconnected")
		}()

		// Serve the most recent frame immediately so a paused pipeline
		// still shows something
		m.frameMu.RLock()
		last := m.lastJPEG
		m.frameMu.RUnlock()
		if last != nil {
			if err := writeFramePart(w, last); err != nil {
				return
			}
		}

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case jpegData, ok := <-frameChan:
				if !ok {
					return
				}
				if err := writeFramePart(w, jpegData); err != nil {
					return
				}
			}
		}
	}
}

func writeFramePart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// SnapshotHandler serves the most recent frame as a single JPEG
func (m *MJPEGOutput) SnapshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.frameMu.RLock()
		last := m.lastJPEG
		m.frameMu.RUnlock()

		if last == nil {
			http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(last)
	}
}

// ViewerHandler serves a minimal HTML page wrapping the stream
func (m *MJPEGOutput) ViewerHandler() http.HandlerFunc {
	const page = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>overlate</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { background: #000; overflow: hidden; display: flex; justify-content: center; align-items: center; min-height: 100vh; }
img { width: 100vw; height: 100vh; object-fit: contain; display: block; background: #000; }
</style>
</head>
<body>
<img src="/stream" alt="translated stream">
</body>
</html>`

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}
}
