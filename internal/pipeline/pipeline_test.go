package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/overlate/overlate/internal/capture"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/ocr"
	"github.com/overlate/overlate/internal/overlay"
	"github.com/overlate/overlate/internal/window"
)

// staticBackend always reports one window
type staticBackend struct {
	info config.WindowInfo
}

func (b *staticBackend) Connect() error { return nil }
func (b *staticBackend) Close() error   { return nil }
func (b *staticBackend) Name() string   { return "static" }

func (b *staticBackend) ListWindows() ([]*config.WindowInfo, error) {
	w := b.info
	return []*config.WindowInfo{&w}, nil
}

func (b *staticBackend) Bounds(id uint32) (*config.Bounds, error) {
	bounds := b.info.Bounds
	return &bounds, nil
}

func (b *staticBackend) ContentOffset(id uint32) (int, int, error) { return 0, 0, nil }

// frameCapturer serves a settable frame
type frameCapturer struct {
	mu    sync.Mutex
	frame *image.RGBA
}

func (c *frameCapturer) Start() error { return nil }
func (c *frameCapturer) Stop() error  { return nil }
func (c *frameCapturer) Name() string { return "frames" }

func (c *frameCapturer) setFrame(f *image.RGBA) {
	c.mu.Lock()
	c.frame = f
	c.mu.Unlock()
}

func (c *frameCapturer) CaptureWindow(w *config.WindowInfo) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil, fmt.Errorf("no frame")
	}
	return c.frame, nil
}

// scriptedOCR returns a fixed result set and counts invocations
type scriptedOCR struct {
	mu      sync.Mutex
	results []ocr.Result
	calls   int
}

func (o *scriptedOCR) Start() error { return nil }
func (o *scriptedOCR) Stop() error  { return nil }
func (o *scriptedOCR) Name() string { return "scripted" }

func (o *scriptedOCR) Recognize(img image.Image) ([]ocr.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	out := make([]ocr.Result, len(o.results))
	copy(out, o.results)
	return out, nil
}

func (o *scriptedOCR) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// echoTranslator prefixes the source text, counting calls
type echoTranslator struct {
	mu    sync.Mutex
	calls int
}

func (t *echoTranslator) Start() error { return nil }
func (t *echoTranslator) Stop() error  { return nil }
func (t *echoTranslator) Name() string { return "echo" }

func (t *echoTranslator) Translate(ctx context.Context, text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	return "EN:" + text, nil
}

func (t *echoTranslator) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// noiseFrame returns a random frame so consecutive calls produce
// distinct perceptual hashes
func noiseFrame(seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

type pipelineHarness struct {
	pipeline   *Pipeline
	capturer   *frameCapturer
	ocr        *scriptedOCR
	translator *echoTranslator
	overlay    *overlay.Manager
	wc         *capture.WindowCapture
	config     *config.Manager
}

func newHarness(t *testing.T) *pipelineHarness {
	t.Helper()

	backend := &staticBackend{info: config.WindowInfo{
		ID:     1,
		Title:  "Test Game",
		Bounds: config.Bounds{Width: 64, Height: 64},
	}}
	capturer := &frameCapturer{frame: noiseFrame(1)}

	mgr := window.NewManagerWithBackend(backend)
	wc := capture.NewWindowCapture(mgr, capturer, "test game", 10*time.Millisecond)
	if err := wc.Start(); err != nil {
		t.Fatalf("capture start: %v", err)
	}
	t.Cleanup(wc.Stop)

	// Wait for the first frame
	deadline := time.Now().Add(time.Second)
	for {
		if f, _ := wc.Frame(); f != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame captured")
		}
		time.Sleep(5 * time.Millisecond)
	}

	configMgr := testConfigManager(t)
	ov := overlay.NewManager(configMgr.Get().Overlay)
	ocrBackend := &scriptedOCR{results: []ocr.Result{
		{Text: "こんにちは", Confidence: 0.9, Bounds: config.Bounds{X: 5, Y: 5, Width: 40, Height: 10}},
	}}
	translator := &echoTranslator{}

	p := New(wc, ocrBackend, translator, ov, nil, configMgr)
	return &pipelineHarness{
		pipeline:   p,
		capturer:   capturer,
		ocr:        ocrBackend,
		translator: translator,
		overlay:    ov,
		wc:         wc,
		config:     configMgr,
	}
}

func testConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	m, err := config.NewManager(t.TempDir() + "/config.yaml")
	if err != nil {
		t.Fatalf("config manager: %v", err)
	}
	return m
}

func TestPipelineStabilityGate(t *testing.T) {
	h := newHarness(t)

	// Round 1: new text, pending only
	h.pipeline.processFrame()
	if h.translator.callCount() != 0 {
		t.Fatal("first round should not translate")
	}

	// Round 2: same frame (hash dedup path) confirms stability
	h.pipeline.processFrame()
	if h.translator.callCount() != 1 {
		t.Fatalf("translator calls = %d, want 1", h.translator.callCount())
	}

	// Round 3: still unchanged, nothing new to translate
	h.pipeline.processFrame()
	if h.translator.callCount() != 1 {
		t.Fatal("already translated text should not re-translate")
	}

	if got := h.overlay.Banner().Text(); got != "EN:こんにちは" {
		t.Errorf("banner text = %q", got)
	}
}

func TestPipelineHashDedupSkipsOCR(t *testing.T) {
	h := newHarness(t)

	h.pipeline.processFrame()
	first := h.ocr.callCount()
	if first != 1 {
		t.Fatalf("OCR calls = %d, want 1", first)
	}

	// Identical frame: OCR must be skipped
	h.pipeline.processFrame()
	h.pipeline.processFrame()
	if h.ocr.callCount() != first {
		t.Errorf("OCR calls = %d, want still %d (dedup)", h.ocr.callCount(), first)
	}
}

func TestPipelineHashDistanceConfigurable(t *testing.T) {
	h := newHarness(t)

	// A threshold covering the whole 64-bit hash treats every frame as
	// unchanged, so OCR runs once no matter how the frames differ
	cfg := h.config.Get()
	cfg.OCR.HashDistance = 64
	if err := h.config.Update(cfg); err != nil {
		t.Fatalf("update config: %v", err)
	}

	h.pipeline.processFrame()
	if h.ocr.callCount() != 1 {
		t.Fatalf("OCR calls = %d, want 1", h.ocr.callCount())
	}

	h.capturer.setFrame(noiseFrame(7))
	waitForFrameChange(t, h)
	h.pipeline.processFrame()
	if h.ocr.callCount() != 1 {
		t.Errorf("OCR calls = %d, want 1 (distance threshold covers all frames)", h.ocr.callCount())
	}
}

func TestPipelineEventsPublished(t *testing.T) {
	h := newHarness(t)
	ch := h.pipeline.Subscribe()
	defer h.pipeline.Unsubscribe(ch)

	h.pipeline.processFrame()
	h.pipeline.processFrame()

	select {
	case ev := <-ch:
		if ev.Source != "こんにちは" || ev.Translation != "EN:こんにちは" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	recent := h.pipeline.Recent()
	if len(recent) != 1 || recent[0].Translation != "EN:こんにちは" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestPipelineLowConfidenceFiltered(t *testing.T) {
	h := newHarness(t)
	h.ocr.mu.Lock()
	h.ocr.results = []ocr.Result{
		{Text: "noise", Confidence: 0.2, Bounds: config.Bounds{X: 0, Y: 0, Width: 10, Height: 10}},
	}
	h.ocr.mu.Unlock()

	h.pipeline.processFrame()
	h.pipeline.processFrame()

	if h.translator.callCount() != 0 {
		t.Error("low-confidence text should never reach the translator")
	}
}

func TestPipelineTextChangeResetsStability(t *testing.T) {
	h := newHarness(t)

	// Round 1 with text A on frame 1
	h.pipeline.processFrame()

	// New frame, new text: stability resets
	h.capturer.setFrame(noiseFrame(99))
	waitForFrameChange(t, h)
	h.ocr.mu.Lock()
	h.ocr.results = []ocr.Result{
		{Text: "違うテキスト", Confidence: 0.9, Bounds: config.Bounds{X: 5, Y: 5, Width: 40, Height: 10}},
	}
	h.ocr.mu.Unlock()

	h.pipeline.processFrame()
	if h.translator.callCount() != 0 {
		t.Fatal("changed text should restart the stability window")
	}

	// Second round with the changed text translates it
	h.pipeline.processFrame()
	if h.translator.callCount() != 1 {
		t.Fatalf("translator calls = %d, want 1", h.translator.callCount())
	}
}

func waitForFrameChange(t *testing.T, h *pipelineHarness) {
	t.Helper()
	// The capture loop polls every 10ms; wait until the new frame lands
	time.Sleep(50 * time.Millisecond)
}

func TestPipelineStatus(t *testing.T) {
	h := newHarness(t)
	h.pipeline.processFrame()

	s := h.pipeline.Status()
	if s.WindowTitle != "test game" {
		t.Errorf("WindowTitle = %q", s.WindowTitle)
	}
	if !s.Active {
		t.Error("pipeline should report an active capture")
	}
	if s.OCRBackend != "scripted" || s.Translator != "echo" {
		t.Errorf("backends = %s/%s", s.OCRBackend, s.Translator)
	}
}
