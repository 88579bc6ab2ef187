package overlay

import (
	"image"
	"image/color"
	"sync"

	"github.com/overlate/overlate/internal/config"
)

// Label pairs a translation with the frame-space bounds of the text it
// replaces
type Label struct {
	Text   string
	Bounds config.Bounds
}

// InplaceWidget renders each translation directly over the recognized
// source text, covering the original with a background box.
type InplaceWidget struct {
	*BaseWidget

	mu        sync.RWMutex
	labels    []Label
	textColor color.RGBA
	bgColor   color.RGBA
	scale     int
}

// NewInplaceWidget creates an in-place widget with the given colors
// and background opacity
func NewInplaceWidget(textColor, bgColor color.RGBA, opacity float64) *InplaceWidget {
	return &InplaceWidget{
		BaseWidget: NewBaseWidget(0, 0, opacity),
		textColor:  textColor,
		bgColor:    bgColor,
		scale:      1,
	}
}

// SetFontScale sets the integer glyph scale factor
func (w *InplaceWidget) SetFontScale(scale int) {
	if scale < 1 {
		scale = 1
	}
	w.mu.Lock()
	w.scale = scale
	w.mu.Unlock()
}

// Type returns the widget type
func (w *InplaceWidget) Type() string {
	return "inplace"
}

// SetLabels replaces the rendered labels
func (w *InplaceWidget) SetLabels(labels []Label) {
	w.mu.Lock()
	w.labels = labels
	w.mu.Unlock()
}

// Labels returns the current labels
func (w *InplaceWidget) Labels() []Label {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Label, len(w.labels))
	copy(out, w.labels)
	return out
}

// Render draws each label over its source region
func (w *InplaceWidget) Render(img *image.RGBA) error {
	if !w.IsEnabled() {
		return nil
	}

	w.mu.RLock()
	labels := w.labels
	scale := w.scale
	w.mu.RUnlock()

	frame := img.Bounds()
	for _, label := range labels {
		if label.Text == "" {
			continue
		}

		b := label.Bounds
		lh := lineHeight * scale
		lines := wrapText(label.Text, maxInt(b.Width, 80)/scale)

		boxW := 0
		for _, line := range lines {
			if lw := measureText(line) * scale; lw > boxW {
				boxW = lw
			}
		}
		boxW += 8
		boxH := len(lines)*lh + 6

		// Cover at least the source region so the original text does
		// not bleed through around a shorter translation
		if boxW < b.Width {
			boxW = b.Width
		}
		if boxH < b.Height {
			boxH = b.Height
		}

		x, y := b.X, b.Y
		if x+boxW > frame.Dx() {
			x = frame.Dx() - boxW
		}
		if x < 0 {
			x = 0
		}
		if y+boxH > frame.Dy() {
			y = frame.Dy() - boxH
		}
		if y < 0 {
			y = 0
		}

		FillRect(img, x, y, boxW, boxH, w.bgColor, w.opacity)
		textY := y + (boxH-len(lines)*lh)/2
		drawTextLines(img, lines, x+4, textY, boxW-8, w.textColor, 1.0, false, scale)
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
