package ocr

import (
	"image"

	"github.com/nfnt/resize"
)

// Frames below this height are upscaled before recognition; small
// pixel-art text recognizes poorly at native size.
const upscaleHeightThreshold = 600

// Preprocess upscales small frames for recognition and returns the
// scale factor applied. Results must be mapped back through the
// returned factor with ScaleResults.
func Preprocess(img image.Image, minScale int) (image.Image, float64) {
	if minScale <= 1 {
		return img, 1
	}

	b := img.Bounds()
	if b.Dy() >= upscaleHeightThreshold {
		return img, 1
	}

	factor := float64(minScale)
	scaled := resize.Resize(uint(float64(b.Dx())*factor), 0, img, resize.Bilinear)
	return scaled, factor
}

// ScaleResults maps recognition bounds from the upscaled image back to
// the original frame's coordinate space.
func ScaleResults(results []Result, factor float64) []Result {
	if factor == 1 {
		return results
	}
	for i := range results {
		results[i].Bounds.X = int(float64(results[i].Bounds.X) / factor)
		results[i].Bounds.Y = int(float64(results[i].Bounds.Y) / factor)
		results[i].Bounds.Width = int(float64(results[i].Bounds.Width) / factor)
		results[i].Bounds.Height = int(float64(results[i].Bounds.Height) / factor)
	}
	return results
}
