package overlay

import (
	"image"
	"image/color"
	"sync"
)

// Banner layout
const (
	bannerHeight       = 100
	bannerBottomMargin = 50
	bannerHorizPadding = 60
	bannerTextPadding  = 12
)

// BannerWidget renders translations in a fixed subtitle bar near the
// bottom of the frame, like film subtitles.
type BannerWidget struct {
	*BaseWidget

	mu        sync.RWMutex
	text      string
	textColor color.RGBA
	bgColor   color.RGBA
	scale     int

	// Optional user-set position; nil keeps the default bottom-center
	customX *int
	customY *int
}

// NewBannerWidget creates a banner widget with the given colors and
// background opacity
func NewBannerWidget(textColor, bgColor color.RGBA, opacity float64) *BannerWidget {
	return &BannerWidget{
		BaseWidget: NewBaseWidget(0, 0, opacity),
		textColor:  textColor,
		bgColor:    bgColor,
		scale:      1,
	}
}

// SetFontScale sets the integer glyph scale factor
func (w *BannerWidget) SetFontScale(scale int) {
	if scale < 1 {
		scale = 1
	}
	w.mu.Lock()
	w.scale = scale
	w.mu.Unlock()
}

// Type returns the widget type
func (w *BannerWidget) Type() string {
	return "banner"
}

// SetText replaces the banner text. An empty string hides the banner.
func (w *BannerWidget) SetText(text string) {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
}

// Text returns the current banner text
func (w *BannerWidget) Text() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.text
}

// SetCustomPosition pins the banner to a fixed position instead of
// the default bottom-center placement.
func (w *BannerWidget) SetCustomPosition(x, y int) {
	w.mu.Lock()
	w.customX = &x
	w.customY = &y
	w.mu.Unlock()
}

// ClearCustomPosition restores the default placement
func (w *BannerWidget) ClearCustomPosition() {
	w.mu.Lock()
	w.customX = nil
	w.customY = nil
	w.mu.Unlock()
}

// Render draws the banner onto the frame
func (w *BannerWidget) Render(img *image.RGBA) error {
	if !w.IsEnabled() {
		return nil
	}

	w.mu.RLock()
	text := w.text
	scale := w.scale
	customX, customY := w.customX, w.customY
	w.mu.RUnlock()

	if text == "" {
		return nil
	}

	frame := img.Bounds()
	width := frame.Dx() - 2*bannerHorizPadding
	if width < 50 {
		width = frame.Dx()
	}

	x := (frame.Dx() - width) / 2
	y := frame.Dy() - bannerBottomMargin - bannerHeight
	if customX != nil {
		x = *customX
	}
	if customY != nil {
		y = *customY
	}
	if y < 0 {
		y = 0
	}

	lh := lineHeight * scale
	lines := wrapText(text, (width-2*bannerTextPadding)/scale)

	// Grow past the fixed height when the text needs more lines
	height := bannerHeight
	if need := len(lines)*lh + 2*bannerTextPadding; need > height {
		height = need
	}

	FillRect(img, x, y, width, height, w.bgColor, w.opacity)

	textY := y + (height-len(lines)*lh)/2
	drawTextLines(img, lines, x+bannerTextPadding, textY, width-2*bannerTextPadding, w.textColor, 1.0, true, scale)
	return nil
}
