package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/overlate/overlate/internal/config"
)

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 128
		img.Pix[i+1] = 128
		img.Pix[i+2] = 128
		img.Pix[i+3] = 255
	}
	return img
}

func framesDiffer(a, b *image.RGBA) bool {
	if len(a.Pix) != len(b.Pix) {
		return true
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return true
		}
	}
	return false
}

func testOverlayConfig() config.OverlayConfig {
	return config.OverlayConfig{
		Mode:              config.OverlayModeBanner,
		FontColor:         "#FFFFFF",
		BackgroundColor:   "#404040",
		BackgroundOpacity: 0.8,
	}
}

func TestFontScale(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 1},
		{10, 1},
		{13, 1},
		{20, 2},
		{26, 2},
		{39, 3},
	}
	for _, tt := range tests {
		if got := fontScale(tt.size); got != tt.want {
			t.Errorf("fontScale(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestBannerFontScaleChangesRendering(t *testing.T) {
	small := NewBannerWidget(color.RGBA{255, 255, 255, 255}, color.RGBA{64, 64, 64, 255}, 1.0)
	small.SetText("Hello")

	large := NewBannerWidget(color.RGBA{255, 255, 255, 255}, color.RGBA{64, 64, 64, 255}, 1.0)
	large.SetText("Hello")
	large.SetFontScale(2)

	a := grayFrame(640, 480)
	b := grayFrame(640, 480)
	if err := small.Render(a); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := large.Render(b); err != nil {
		t.Fatalf("render: %v", err)
	}

	if !framesDiffer(a, b) {
		t.Error("font scale 2 rendered identically to scale 1")
	}
}

func TestManagerAppliesFontSize(t *testing.T) {
	cfg := testOverlayConfig()
	cfg.FontSize = 26
	m := NewManager(cfg)

	if got := m.Banner().scale; got != 2 {
		t.Errorf("banner scale = %d, want 2", got)
	}
}

func TestWrapText(t *testing.T) {
	short := wrapText("hello", 500)
	if len(short) != 1 || short[0] != "hello" {
		t.Fatalf("short text should not wrap, got %v", short)
	}

	long := wrapText("the quick brown fox jumps over the lazy dog", 100)
	if len(long) < 2 {
		t.Fatalf("long text should wrap, got %v", long)
	}
	for _, line := range long {
		if measureText(line) > 100 {
			t.Errorf("line %q wider than limit", line)
		}
	}
}

func TestWrapTextNoSpaces(t *testing.T) {
	// CJK-style text without spaces must hard-break
	lines := wrapText("あいうえおかきくけこさしすせそたちつてと", 80)
	if len(lines) < 2 {
		t.Fatalf("space-free text should hard-break, got %v", lines)
	}
	for _, line := range lines {
		if measureText(line) > 80 {
			t.Errorf("line %q wider than limit", line)
		}
	}
}

func TestBlendImageOpaque(t *testing.T) {
	dst := grayFrame(10, 10)
	src := image.NewUniform(color.RGBA{255, 0, 0, 255})
	srcImg := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			srcImg.Set(x, y, src.C)
		}
	}

	BlendImage(dst, srcImg, 4, 4, 1.0)

	c := dst.RGBAAt(4, 4)
	if c.R < 250 || c.G > 5 {
		t.Errorf("opaque blend = %v, want red", c)
	}
	if out := dst.RGBAAt(0, 0); out.R != 128 {
		t.Errorf("pixel outside blend region changed: %v", out)
	}
}

func TestBlendImageClipping(t *testing.T) {
	dst := grayFrame(4, 4)
	srcImg := image.NewRGBA(image.Rect(0, 0, 10, 10))

	// Must not panic when the source extends past the destination
	BlendImage(dst, srcImg, 2, 2, 1.0)
	BlendImage(dst, srcImg, -5, -5, 1.0)
}

func TestBannerRendering(t *testing.T) {
	w := NewBannerWidget(color.RGBA{255, 255, 255, 255}, color.RGBA{64, 64, 64, 255}, 0.8)
	frame := grayFrame(800, 600)
	base := grayFrame(800, 600)

	// Empty text renders nothing
	if err := w.Render(frame); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if framesDiffer(frame, base) {
		t.Fatal("empty banner should not modify the frame")
	}

	w.SetText("Hello, world")
	if err := w.Render(frame); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !framesDiffer(frame, base) {
		t.Fatal("banner with text should modify the frame")
	}

	// The banner occupies the bottom band, not the top
	if frame.RGBAAt(400, 10) != base.RGBAAt(400, 10) {
		t.Error("top of frame should be untouched")
	}
	bannerY := 600 - bannerBottomMargin - bannerHeight + 5
	if frame.RGBAAt(400, bannerY) == base.RGBAAt(400, bannerY) {
		t.Error("banner band should be drawn")
	}
}

func TestBannerCustomPosition(t *testing.T) {
	w := NewBannerWidget(color.RGBA{255, 255, 255, 255}, color.RGBA{64, 64, 64, 255}, 1.0)
	w.SetText("pinned")
	w.SetCustomPosition(10, 20)

	frame := grayFrame(800, 600)
	base := grayFrame(800, 600)
	if err := w.Render(frame); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if frame.RGBAAt(15, 25) == base.RGBAAt(15, 25) {
		t.Error("banner should render at the pinned position")
	}
	defaultY := 600 - bannerBottomMargin - bannerHeight + 5
	if frame.RGBAAt(400, defaultY) != base.RGBAAt(400, defaultY) {
		t.Error("default band should be untouched when pinned")
	}
}

func TestInplaceRendering(t *testing.T) {
	w := NewInplaceWidget(color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255}, 1.0)
	w.SetLabels([]Label{
		{Text: "Hello", Bounds: config.Bounds{X: 100, Y: 100, Width: 120, Height: 20}},
	})

	frame := grayFrame(800, 600)
	base := grayFrame(800, 600)
	if err := w.Render(frame); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if frame.RGBAAt(110, 110) == base.RGBAAt(110, 110) {
		t.Error("label region should be covered")
	}
	if frame.RGBAAt(700, 500) != base.RGBAAt(700, 500) {
		t.Error("area away from labels should be untouched")
	}
}

func TestInplaceLabelClampedToFrame(t *testing.T) {
	w := NewInplaceWidget(color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255}, 1.0)
	w.SetLabels([]Label{
		{Text: "edge", Bounds: config.Bounds{X: 790, Y: 590, Width: 100, Height: 30}},
	})

	// Must not panic with out-of-frame bounds
	if err := w.Render(grayFrame(800, 600)); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestManagerModeSwitch(t *testing.T) {
	m := NewManager(testOverlayConfig())
	if m.Mode() != config.OverlayModeBanner {
		t.Fatalf("initial mode = %s", m.Mode())
	}

	m.SetMode(config.OverlayModeInplace)
	if m.Mode() != config.OverlayModeInplace {
		t.Fatal("mode should switch to inplace")
	}

	m.SetMode("bogus")
	if m.Mode() != config.OverlayModeInplace {
		t.Fatal("invalid mode should be ignored")
	}
}

func TestManagerComposeDoesNotMutateInput(t *testing.T) {
	m := NewManager(testOverlayConfig())
	m.SetTranslations([]Label{
		{Text: "Hello", Bounds: config.Bounds{X: 10, Y: 10, Width: 100, Height: 20}},
	})

	frame := grayFrame(800, 600)
	base := grayFrame(800, 600)

	out := m.Compose(frame)
	if framesDiffer(frame, base) {
		t.Fatal("Compose must not modify the input frame")
	}
	if !framesDiffer(out, base) {
		t.Fatal("Compose output should contain the overlay")
	}
}

func TestManagerSetTranslationsFeedsBothModes(t *testing.T) {
	m := NewManager(testOverlayConfig())
	m.SetTranslations([]Label{
		{Text: "one", Bounds: config.Bounds{X: 0, Y: 0, Width: 50, Height: 10}},
		{Text: "two", Bounds: config.Bounds{X: 0, Y: 30, Width: 50, Height: 10}},
	})

	if got := m.Banner().Text(); got != "one  two" {
		t.Errorf("banner text = %q", got)
	}
	if got := len(m.inplace.Labels()); got != 2 {
		t.Errorf("inplace labels = %d, want 2", got)
	}

	m.Clear()
	if m.Banner().Text() != "" {
		t.Error("Clear should empty the banner")
	}
}
