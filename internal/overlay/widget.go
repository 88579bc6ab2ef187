package overlay

import (
	"image"
	"image/color"
	"image/draw"
)

// Widget is a renderable layer composited onto captured frames
type Widget interface {
	// Type returns the widget type name
	Type() string

	// Render draws the widget onto the frame
	Render(img *image.RGBA) error

	// IsEnabled returns whether the widget should be rendered
	IsEnabled() bool

	// SetEnabled sets whether the widget should be rendered
	SetEnabled(enabled bool)
}

// BaseWidget provides common functionality for all widgets
type BaseWidget struct {
	enabled bool
	x       int
	y       int
	opacity float64 // 0.0 to 1.0
}

// NewBaseWidget creates a new base widget
func NewBaseWidget(x, y int, opacity float64) *BaseWidget {
	return &BaseWidget{
		enabled: true,
		x:       x,
		y:       y,
		opacity: opacity,
	}
}

// IsEnabled returns whether the widget should be rendered
func (w *BaseWidget) IsEnabled() bool {
	return w.enabled
}

// SetEnabled sets whether the widget should be rendered
func (w *BaseWidget) SetEnabled(enabled bool) {
	w.enabled = enabled
}

// Position returns the widget's position
func (w *BaseWidget) Position() (int, int) {
	return w.x, w.y
}

// SetPosition sets the widget's position
func (w *BaseWidget) SetPosition(x, y int) {
	w.x = x
	w.y = y
}

// SetOpacity sets the widget's opacity (clamped to 0.0-1.0)
func (w *BaseWidget) SetOpacity(opacity float64) {
	if opacity < 0.0 {
		opacity = 0.0
	}
	if opacity > 1.0 {
		opacity = 1.0
	}
	w.opacity = opacity
}

// BlendImage blends a source image onto a destination at the given
// position with the specified opacity, clipping at the edges.
func BlendImage(dst *image.RGBA, src image.Image, x, y int, opacity float64) {
	srcBounds := src.Bounds()
	dstBounds := dst.Bounds()

	for sy := srcBounds.Min.Y; sy < srcBounds.Max.Y; sy++ {
		dy := y + (sy - srcBounds.Min.Y)
		if dy < dstBounds.Min.Y || dy >= dstBounds.Max.Y {
			continue
		}

		for sx := srcBounds.Min.X; sx < srcBounds.Max.X; sx++ {
			dx := x + (sx - srcBounds.Min.X)
			if dx < dstBounds.Min.X || dx >= dstBounds.Max.X {
				continue
			}

			sr, sg, sb, sa := src.At(sx, sy).RGBA()
			alpha := float64(sa) * opacity / 65535.0
			if alpha <= 0 {
				continue
			}

			dr, dg, db, da := dst.At(dx, dy).RGBA()
			outAlpha := alpha + float64(da)/65535.0*(1-alpha)
			if outAlpha > 0 {
				outR := uint8((float64(sr)*alpha + float64(dr)/65535.0*float64(da)/65535.0*(1-alpha)) / outAlpha / 256)
				outG := uint8((float64(sg)*alpha + float64(dg)/65535.0*float64(da)/65535.0*(1-alpha)) / outAlpha / 256)
				outB := uint8((float64(sb)*alpha + float64(db)/65535.0*float64(da)/65535.0*(1-alpha)) / outAlpha / 256)
				dst.SetRGBA(dx, dy, color.RGBA{R: outR, G: outG, B: outB, A: uint8(outAlpha * 255)})
			}
		}
	}
}

// FillRect blends a filled rectangle onto the destination
func FillRect(dst *image.RGBA, x, y, width, height int, c color.RGBA, opacity float64) {
	tmp := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(tmp, tmp.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	BlendImage(dst, tmp, x, y, opacity)
}
