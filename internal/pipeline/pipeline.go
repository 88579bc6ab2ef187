package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/overlate/overlate/internal/capture"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
	"github.com/overlate/overlate/internal/ocr"
	"github.com/overlate/overlate/internal/output"
	"github.com/overlate/overlate/internal/overlay"
	"github.com/overlate/overlate/internal/translate"
	"github.com/rs/zerolog"
)

// Perceptual hash distance at or below which two frames count as
// identical and OCR is skipped, when the config leaves it unset.
const defaultHashDistance = 5

// Event is one completed translation, broadcast to API subscribers
type Event struct {
	Source      string        `json:"source"`
	Translation string        `json:"translation"`
	Bounds      config.Bounds `json:"bounds"`
	At          time.Time     `json:"at"`
}

// Pipeline wires capture, OCR, translation, overlay and outputs
// together. Two loops run concurrently: a render loop compositing the
// overlay onto every captured frame, and a slower OCR loop feeding the
// overlay with fresh translations.
type Pipeline struct {
	capture    *capture.WindowCapture
	ocrBackend ocr.Backend
	translator translate.Translator
	overlay    *overlay.Manager
	outputs    []output.Output
	configMgr  *config.Manager
	log        *zerolog.Logger

	mu            sync.Mutex
	lastHash      *goimagehash.ImageHash
	pendingKey    string
	translatedKey string
	lastResults   []ocr.Result
	subscribers   map[chan Event]struct{}
	recent        []Event
	ocrErrors     int
	lastOCRTime   time.Time
	lastOCRCount  int

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a pipeline from its components
func New(
	wc *capture.WindowCapture,
	ocrBackend ocr.Backend,
	translator translate.Translator,
	ov *overlay.Manager,
	outputs []output.Output,
	configMgr *config.Manager,
) *Pipeline {
	return &Pipeline{
		capture:     wc,
		ocrBackend:  ocrBackend,
		translator:  translator,
		overlay:     ov,
		outputs:     outputs,
		configMgr:   configMgr,
		log:         logger.WithComponent("pipeline"),
		subscribers: make(map[chan Event]struct{}),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the render and OCR loops
func (p *Pipeline) Start() {
	cfg := p.configMgr.Get()

	captureInterval := time.Duration(cfg.Capture.IntervalMS) * time.Millisecond
	if captureInterval <= 0 {
		captureInterval = 250 * time.Millisecond
	}
	ocrInterval := time.Duration(cfg.OCR.IntervalMS) * time.Millisecond
	if ocrInterval <= 0 {
		ocrInterval = 500 * time.Millisecond
	}

	p.wg.Add(2)
	go p.renderLoop(captureInterval)
	go p.ocrLoop(ocrInterval)
}

// Stop terminates both loops and closes subscriber channels
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()

	p.mu.Lock()
	for ch := range p.subscribers {
		close(ch)
	}
	p.subscribers = make(map[chan Event]struct{})
	p.mu.Unlock()
}

// Subscribe returns a channel receiving every completed translation.
// Slow subscribers drop events rather than stall the pipeline.
func (p *Pipeline) Subscribe() chan Event {
	ch := make(chan Event, 16)
	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (p *Pipeline) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	if _, ok := p.subscribers[ch]; ok {
		delete(p.subscribers, ch)
		close(ch)
	}
	p.mu.Unlock()
}

// Recent returns the most recent translations, newest last
func (p *Pipeline) Recent() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.recent))
	copy(out, p.recent)
	return out
}

// renderLoop composites the overlay onto every captured frame and
// fans it out to the outputs
func (p *Pipeline) renderLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			frame, _ := p.capture.Frame()
			if frame == nil {
				continue
			}

			composited := p.overlay.Compose(frame)
			for _, out := range p.outputs {
				if !out.IsRunning() {
					continue
				}
				if err := out.WriteFrame(composited); err != nil {
					p.log.Debug().Err(err).Str("output", out.Name()).Msg("Frame write failed")
				}
			}
		}
	}
}

// ocrLoop recognizes and translates text on a slower cadence
func (p *Pipeline) ocrLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.processFrame()
		}
	}
}

// processFrame runs one OCR round: dedup, recognize, filter, stability
// check, translate, publish.
func (p *Pipeline) processFrame() {
	frame, _ := p.capture.Frame()
	if frame == nil {
		return
	}

	cfg := p.configMgr.Get()
	maxDist := cfg.OCR.HashDistance
	if maxDist <= 0 {
		maxDist = defaultHashDistance
	}

	// Skip OCR when the frame has not visibly changed. An unchanged
	// frame also confirms the pending text is stable: translate it.
	hash, err := goimagehash.PerceptionHash(frame)
	if err == nil {
		p.mu.Lock()
		last := p.lastHash
		p.mu.Unlock()

		if last != nil {
			if dist, err := hash.Distance(last); err == nil && dist <= maxDist {
				if results, ok := p.takeStablePending(); ok {
					p.translateResults(results)
				}
				return
			}
		}
		p.mu.Lock()
		p.lastHash = hash
		p.mu.Unlock()
	}

	scaled, factor := ocr.Preprocess(frame, cfg.OCR.MinScale)

	start := time.Now()
	results, err := p.ocrBackend.Recognize(scaled)
	if err != nil {
		p.mu.Lock()
		p.ocrErrors++
		p.mu.Unlock()
		p.log.Warn().Err(err).Msg("OCR failed")
		return
	}
	results = ocr.ScaleResults(results, factor)

	windowTitle := ""
	if info := p.capture.Window(); info != nil {
		windowTitle = info.Title
	}

	threshold := p.configMgr.OCRConfidence(windowTitle)
	zones := p.configMgr.ExclusionZones(windowTitle)
	results = ocr.Filter(results, threshold, zones, frame.Bounds().Dx(), frame.Bounds().Dy())

	p.mu.Lock()
	p.lastOCRTime = time.Now()
	p.lastOCRCount = len(results)
	p.mu.Unlock()

	p.log.Debug().
		Int("regions", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("OCR round complete")

	if len(results) == 0 {
		p.setStableKey("")
		p.overlay.Clear()
		return
	}

	// Require the same text on two consecutive rounds before spending
	// a translation call; mid-animation frames produce garbage text.
	key := resultsKey(results)
	if !p.isStable(key, results) {
		return
	}

	p.translateResults(results)
}

// translateResults translates each region and publishes the labels
func (p *Pipeline) translateResults(results []ocr.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	labels := make([]overlay.Label, 0, len(results))
	for _, r := range results {
		translation, err := p.translator.Translate(ctx, r.Text)
		if err != nil {
			p.log.Warn().Err(err).Str("text", r.Text).Msg("Translation failed")
			continue
		}
		if translation == "" {
			continue
		}

		labels = append(labels, overlay.Label{Text: translation, Bounds: r.Bounds})
		p.Publish(Event{
			Source:      r.Text,
			Translation: translation,
			Bounds:      r.Bounds,
			At:          time.Now(),
		})
	}

	if len(labels) > 0 {
		p.overlay.SetTranslations(labels)
	}
}

// isStable records the OCR key and reports whether it matched the
// previous round and has not already been translated
func (p *Pipeline) isStable(key string, results []ocr.Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key != p.pendingKey {
		p.pendingKey = key
		p.lastResults = results
		return false
	}
	if key == p.translatedKey {
		return false
	}
	p.translatedKey = key
	return true
}

// takeStablePending marks the pending text as translated and returns
// its results, if there is untranslated pending text
func (p *Pipeline) takeStablePending() ([]ocr.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pendingKey == "" || p.pendingKey == p.translatedKey {
		return nil, false
	}
	p.translatedKey = p.pendingKey
	return p.lastResults, true
}

func (p *Pipeline) setStableKey(key string) {
	p.mu.Lock()
	p.pendingKey = key
	p.translatedKey = key
	p.lastResults = nil
	p.mu.Unlock()
}

// Publish fans an event out to subscribers and the recent ring
func (p *Pipeline) Publish(ev Event) {
	p.mu.Lock()
	p.recent = append(p.recent, ev)
	if len(p.recent) > 50 {
		p.recent = p.recent[len(p.recent)-50:]
	}
	for ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	p.mu.Unlock()
}

// resultsKey builds a stability key from the recognized texts
func resultsKey(results []ocr.Result) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\x1f")
}

// Status summarizes pipeline health for the API
type Status struct {
	WindowTitle string  `json:"window_title"`
	Active      bool    `json:"active"`
	CaptureFPS  float64 `json:"capture_fps"`
	OCRBackend  string  `json:"ocr_backend"`
	Translator  string  `json:"translator"`
	OCRErrors   int     `json:"ocr_errors"`
	LastOCR     string  `json:"last_ocr,omitempty"`
	LastRegions int     `json:"last_regions"`
}

// Status returns a snapshot of pipeline health
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		WindowTitle: p.capture.Title(),
		Active:      p.capture.Active(),
		CaptureFPS:  p.capture.FPS(),
		OCRBackend:  p.ocrBackend.Name(),
		Translator:  p.translator.Name(),
		OCRErrors:   p.ocrErrors,
		LastRegions: p.lastOCRCount,
	}
	if !p.lastOCRTime.IsZero() {
		s.LastOCR = p.lastOCRTime.Format(time.RFC3339)
	}
	return s
}
