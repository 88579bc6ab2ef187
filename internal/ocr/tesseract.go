package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// TesseractBackend recognizes text with a local Tesseract installation
// through gosseract. The client is not goroutine-safe, so calls are
// serialized.
type TesseractBackend struct {
	languages []string
	mu        sync.Mutex
	client    *gosseract.Client
}

// NewTesseractBackend creates a Tesseract OCR backend
func NewTesseractBackend(languages []string) *TesseractBackend {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractBackend{languages: languages}
}

// Name returns the backend name
func (b *TesseractBackend) Name() string {
	return "tesseract"
}

// Start creates the gosseract client
func (b *TesseractBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	client := gosseract.NewClient()
	if err := client.SetLanguage(b.languages...); err != nil {
		client.Close()
		return fmt.Errorf("failed to set OCR languages %v: %w", b.languages, err)
	}

	b.client = client
	logger.WithComponent("ocr-tesseract").Info().
		Strs("languages", b.languages).
		Msg("Tesseract client initialized")
	return nil
}

// Stop closes the gosseract client
func (b *TesseractBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		err := b.client.Close()
		b.client = nil
		return err
	}
	return nil
}

// Recognize extracts text line regions from the frame
func (b *TesseractBackend) Recognize(img image.Image) ([]Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil, fmt.Errorf("tesseract backend not started")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := b.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := b.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	results := make([]Result, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		results = append(results, Result{
			Text:       text,
			Confidence: box.Confidence / 100.0,
			Bounds: config.Bounds{
				X:      box.Box.Min.X,
				Y:      box.Box.Min.Y,
				Width:  box.Box.Dx(),
				Height: box.Box.Dy(),
			},
		})
	}
	return results, nil
}
