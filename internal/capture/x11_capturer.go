package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
)

// OffsetFunc reports the content area offset of a window, used to crop
// title bars and CSD decorations out of captured frames.
type OffsetFunc func(id uint32) (int, int, error)

// X11Capturer captures window contents through X11/XWayland. It owns a
// dedicated X connection so capture never contends with window discovery.
type X11Capturer struct {
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	contentOffset    OffsetFunc
	mu               sync.Mutex
}

// NewX11Capturer creates a new X11 capturer. contentOffset may be nil,
// in which case frames are not cropped.
func NewX11Capturer(contentOffset OffsetFunc) (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Capturer{
		conn:          conn,
		root:          screen.Root,
		screen:        screen,
		contentOffset: contentOffset,
	}, nil
}

// Start initializes the Composite extension
func (c *X11Capturer) Start() error {
	log := logger.WithComponent("x11-capturer")

	if err := composite.Init(c.conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available, obscured windows may capture black")
		c.compositeEnabled = false
	} else {
		c.compositeEnabled = true
		log.Debug().Msg("Composite extension initialized")
	}

	return nil
}

// Stop closes the X connection
func (c *X11Capturer) Stop() error {
	c.conn.Close()
	return nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "x11"
}

// CaptureWindow grabs the current contents of the window, cropped to
// its content area.
func (c *X11Capturer) CaptureWindow(window *config.WindowInfo) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if window.ID == 0 {
		return nil, fmt.Errorf("invalid window ID")
	}

	win := xproto.Window(window.ID)

	attrs, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return nil, windowError(err, "failed to get window attributes")
	}
	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		// Frame windows and unmapped clients: capture the largest
		// viewable child instead
		child, err := c.findCapturableChild(win)
		if err != nil {
			return nil, fmt.Errorf("window not capturable: %w", err)
		}
		win = child
	}

	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, windowError(err, "failed to get window geometry")
	}
	if geom.Width == 0 || geom.Height == 0 {
		return nil, fmt.Errorf("window has zero size")
	}

	img, err := c.captureDrawable(win, geom)
	if err != nil {
		return nil, err
	}

	if c.contentOffset != nil {
		if offX, offY, err := c.contentOffset(window.ID); err == nil {
			img = cropImage(img, offX, offY)
		}
	}

	return img, nil
}

// findCapturableChild returns the largest viewable InputOutput descendant
func (c *X11Capturer) findCapturableChild(parent xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(c.conn, parent).Reply()
	if err != nil {
		return 0, windowError(err, "failed to query tree")
	}

	var best xproto.Window
	var bestArea int
	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.conn, child).Reply()
		if err != nil || attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}
		area := int(geom.Width) * int(geom.Height)
		if area > bestArea && geom.Width > 10 && geom.Height > 10 {
			best = child
			bestArea = area
		}

		if grandchild, err := c.findCapturableChild(child); err == nil {
			if g, err := xproto.GetGeometry(c.conn, xproto.Drawable(grandchild)).Reply(); err == nil {
				if a := int(g.Width) * int(g.Height); a > bestArea {
					best = grandchild
					bestArea = a
				}
			}
		}
	}

	if bestArea == 0 {
		return 0, fmt.Errorf("no capturable child found")
	}
	return best, nil
}

// captureDrawable reads pixels via the Composite extension when
// available, so obscured and off-screen windows still capture correctly.
func (c *X11Capturer) captureDrawable(win xproto.Window, geom *xproto.GetGeometryReply) (*image.RGBA, error) {
	drawable := xproto.Drawable(win)

	if c.compositeEnabled {
		if err := composite.RedirectWindowChecked(c.conn, win, composite.RedirectAutomatic).Check(); err == nil {
			defer composite.UnredirectWindow(c.conn, win, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(c.conn); err == nil {
				if err := composite.NameWindowPixmapChecked(c.conn, win, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(c.conn, pixmap)
				}
			}
		}
	}

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, windowError(err, "failed to get image")
	}

	return convertZPixmap(reply.Data, int(geom.Width), int(geom.Height), int(reply.Depth)), nil
}

// convertZPixmap converts raw ZPixmap data to RGBA. Handles the common
// 24/32-bit BGRA layout and 16-bit RGB565.
func convertZPixmap(data []byte, width, height, depth int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	switch depth {
	case 24, 32:
		for y := 0; y < height; y++ {
			src := y * width * 4
			dst := img.PixOffset(0, y)
			for x := 0; x < width; x++ {
				if src+3 >= len(data) {
					break
				}
				img.Pix[dst] = data[src+2]
				img.Pix[dst+1] = data[src+1]
				img.Pix[dst+2] = data[src]
				img.Pix[dst+3] = 255
				src += 4
				dst += 4
			}
		}
	case 16:
		// RGB565, rows padded to 4 bytes
		stride := (width*2 + 3) &^ 3
		for y := 0; y < height; y++ {
			src := y * stride
			dst := img.PixOffset(0, y)
			for x := 0; x < width; x++ {
				if src+1 >= len(data) {
					break
				}
				v := uint16(data[src]) | uint16(data[src+1])<<8
				r := uint8(v >> 11 & 0x1F)
				g := uint8(v >> 5 & 0x3F)
				b := uint8(v & 0x1F)
				img.Pix[dst] = r<<3 | r>>2
				img.Pix[dst+1] = g<<2 | g>>4
				img.Pix[dst+2] = b<<3 | b>>2
				img.Pix[dst+3] = 255
				src += 2
				dst += 4
			}
		}
	}

	return img
}

// windowError maps X protocol errors for destroyed windows to
// ErrWindowGone so the stream can trigger recovery.
func windowError(err error, msg string) error {
	switch err.(type) {
	case xproto.WindowError, xproto.DrawableError:
		return fmt.Errorf("%s: %w", msg, ErrWindowGone)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
