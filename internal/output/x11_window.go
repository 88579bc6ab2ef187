package output

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/overlate/overlate/internal/logger"
)

// Maximum pixel bytes per PutImage request, kept under the X server's
// request size limit.
const putImageChunk = 256 * 1024

// X11WindowOutput shows composited frames in a local X11 preview
// window, for running without a browser.
type X11WindowOutput struct {
	title string

	mu      sync.Mutex
	conn    *xgb.Conn
	screen  *xproto.ScreenInfo
	window  xproto.Window
	gc      xproto.Gcontext
	width   uint16
	height  uint16
	running bool
}

// NewX11WindowOutput creates a preview window output
func NewX11WindowOutput(title string) *X11WindowOutput {
	if title == "" {
		title = "overlate"
	}
	return &X11WindowOutput{title: title}
}

// Name returns the output type name
func (o *X11WindowOutput) Name() string {
	return "x11-window"
}

// IsRunning returns true if the window exists
func (o *X11WindowOutput) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start connects to the X server. The window itself is created lazily
// from the first frame, which fixes its size.
func (o *X11WindowOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}

	o.conn = conn
	o.screen = xproto.Setup(conn).DefaultScreen(conn)
	o.running = true
	return nil
}

// Stop destroys the window and closes the connection
func (o *X11WindowOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return nil
	}
	o.running = false

	if o.gc != 0 {
		xproto.FreeGC(o.conn, o.gc)
	}
	if o.window != 0 {
		xproto.DestroyWindow(o.conn, o.window)
	}
	o.conn.Close()
	return nil
}

// WriteFrame displays the frame in the preview window
func (o *X11WindowOutput) WriteFrame(frame *image.RGBA) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return fmt.Errorf("x11 window output not running")
	}

	w := uint16(frame.Bounds().Dx())
	h := uint16(frame.Bounds().Dy())

	if o.window == 0 || w != o.width || h != o.height {
		if err := o.rebuildWindow(w, h); err != nil {
			return err
		}
	}

	return o.putImage(frame)
}

// rebuildWindow (re)creates the preview window at the frame size
func (o *X11WindowOutput) rebuildWindow(w, h uint16) error {
	if o.window != 0 {
		xproto.FreeGC(o.conn, o.gc)
		xproto.DestroyWindow(o.conn, o.window)
		o.window = 0
		o.gc = 0
	}

	windowID, err := xproto.NewWindowId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window ID: %w", err)
	}

	err = xproto.CreateWindowChecked(
		o.conn,
		o.screen.RootDepth,
		windowID,
		o.screen.Root,
		0, 0, w, h, 0,
		xproto.WindowClassInputOutput,
		o.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{o.screen.BlackPixel, xproto.EventMaskExposure | xproto.EventMaskStructureNotify},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create preview window: %w", err)
	}

	xproto.ChangeProperty(o.conn, xproto.PropModeReplace, windowID,
		xproto.AtomWmName, xproto.AtomString, 8,
		uint32(len(o.title)), []byte(o.title))

	if err := xproto.MapWindowChecked(o.conn, windowID).Check(); err != nil {
		return fmt.Errorf("failed to map preview window: %w", err)
	}

	gc, err := xproto.NewGcontextId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate graphics context: %w", err)
	}
	err = xproto.CreateGCChecked(
		o.conn, gc, xproto.Drawable(windowID),
		xproto.GcForeground|xproto.GcBackground,
		[]uint32{o.screen.BlackPixel, o.screen.WhitePixel},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}

	o.window = windowID
	o.gc = gc
	o.width = w
	o.height = h

	logger.WithComponent("x11-output").Info().
		Uint16("width", w).
		Uint16("height", h).
		Msg("Preview window created")
	return nil
}

// putImage uploads the frame in row chunks that fit in one request
func (o *X11WindowOutput) putImage(frame *image.RGBA) error {
	width := int(o.width)
	height := int(o.height)

	// RGBA to X11 BGRX
	data := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		src := frame.PixOffset(0, y)
		dst := y * width * 4
		for x := 0; x < width; x++ {
			data[dst] = frame.Pix[src+2]
			data[dst+1] = frame.Pix[src+1]
			data[dst+2] = frame.Pix[src]
			data[dst+3] = 0
			src += 4
			dst += 4
		}
	}

	rowBytes := width * 4
	rowsPerChunk := putImageChunk / rowBytes
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}

	for y := 0; y < height; y += rowsPerChunk {
		rows := rowsPerChunk
		if y+rows > height {
			rows = height - y
		}

		err := xproto.PutImageChecked(
			o.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(o.window),
			o.gc,
			uint16(width), uint16(rows),
			0, int16(y),
			0,
			o.screen.RootDepth,
			data[y*rowBytes:(y+rows)*rowBytes],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to put image: %w", err)
		}
	}
	return nil
}
