package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Line height of the basicfont face, in pixels
const lineHeight = 16

// Height of the basicfont glyphs, the reference for font scaling
const baseFontSize = 13

// textFace returns the overlay font face
func textFace() font.Face {
	return basicfont.Face7x13
}

// fontScale converts a configured font size in pixels to an integer
// glyph scale factor for the fixed bitmap face
func fontScale(size int) int {
	scale := (size + baseFontSize/2) / baseFontSize
	if scale < 1 {
		scale = 1
	}
	return scale
}

// measureText returns the pixel width of a string in the overlay font
func measureText(text string) int {
	d := &font.Drawer{Face: textFace()}
	return int(d.MeasureString(text) >> 6)
}

// wrapText splits text into lines no wider than maxWidth pixels,
// breaking on spaces where possible. CJK text has no spaces, so
// overlong words are hard-broken per rune.
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 || measureText(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measureText(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		if measureText(word) <= maxWidth {
			current = word
			continue
		}
		// Hard-break the overlong word
		broken, rest := hardBreak(word, maxWidth)
		lines = append(lines, broken...)
		current = rest
	}
	if current != "" {
		lines = append(lines, current)
	}

	// Space-free text (no fields split): hard-break the whole string
	if len(lines) == 0 {
		lines, current = hardBreak(text, maxWidth)
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// hardBreak splits a string per rune into full lines plus a remainder
func hardBreak(text string, maxWidth int) ([]string, string) {
	var lines []string
	var current string
	for _, r := range text {
		candidate := current + string(r)
		if measureText(candidate) > maxWidth && current != "" {
			lines = append(lines, current)
			current = string(r)
		} else {
			current = candidate
		}
	}
	return lines, current
}

// drawTextLines renders lines of text onto dst starting at (x, y),
// blended with the given opacity. Glyphs are rasterized at the base
// size and integer-scaled up by scale. centered centers each line
// within width; x, y and width are in scaled pixels.
func drawTextLines(dst *image.RGBA, lines []string, x, y, width int, textColor color.RGBA, opacity float64, centered bool, scale int) {
	if scale < 1 {
		scale = 1
	}

	for i, line := range lines {
		w := measureText(line)
		if w <= 0 {
			continue
		}

		lineX := x
		if centered && width > w*scale {
			lineX = x + (width-w*scale)/2
		}

		textImg := image.NewRGBA(image.Rect(0, 0, w, lineHeight))
		d := &font.Drawer{
			Dst:  textImg,
			Src:  image.NewUniform(textColor),
			Face: textFace(),
			Dot:  fixed.Point26_6{X: 0, Y: fixed.I(lineHeight - 3)},
		}
		d.DrawString(line)

		scaled := scaleGlyphs(textImg, scale)
		BlendImage(dst, scaled, lineX, y+i*lineHeight*scale, opacity)
	}
}

// scaleGlyphs integer-scales rendered text with nearest-neighbor so the
// bitmap glyphs stay crisp
func scaleGlyphs(textImg *image.RGBA, scale int) *image.RGBA {
	if scale == 1 {
		return textImg
	}

	b := textImg.Bounds()
	img := resize.Resize(uint(b.Dx()*scale), uint(b.Dy()*scale), textImg, resize.NearestNeighbor)
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
