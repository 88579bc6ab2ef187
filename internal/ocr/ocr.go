package ocr

import (
	"fmt"
	"image"

	"github.com/overlate/overlate/internal/config"
)

// Result is one recognized text region, with bounds in frame pixels
type Result struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"` // 0.0-1.0
	Bounds     config.Bounds `json:"bounds"`
}

// Backend defines the interface for text recognition backends
type Backend interface {
	// Start initializes the backend
	Start() error

	// Stop releases backend resources
	Stop() error

	// Name returns the backend name
	Name() string

	// Recognize extracts text regions from a frame
	Recognize(img image.Image) ([]Result, error)
}

// New creates the OCR backend named in the configuration
func New(cfg config.OCRConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "tesseract":
		return NewTesseractBackend(cfg.Languages), nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("http OCR backend requires an endpoint")
		}
		return NewHTTPBackend(cfg.Endpoint, cfg.Languages), nil
	default:
		return nil, fmt.Errorf("unknown OCR backend: %s", cfg.Backend)
	}
}

// Filter drops results below the confidence threshold or centered
// inside an exclusion zone. Zones are fractions of the frame so they
// survive window resizes.
func Filter(results []Result, threshold float64, zones []config.Zone, frameW, frameH int) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Text == "" || r.Confidence < threshold {
			continue
		}
		if frameW > 0 && frameH > 0 && inZone(r.Bounds, zones, frameW, frameH) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// inZone reports whether the center of the bounds falls in any zone
func inZone(b config.Bounds, zones []config.Zone, frameW, frameH int) bool {
	cx := float64(b.X+b.Width/2) / float64(frameW)
	cy := float64(b.Y+b.Height/2) / float64(frameH)

	for _, z := range zones {
		if cx >= z.X && cx <= z.X+z.Width && cy >= z.Y && cy <= z.Y+z.Height {
			return true
		}
	}
	return false
}
