package x11

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowClass is the WM_CLASS of every image window.
const WindowClass = "Sticky"

// ImageWindowConfig controls how an image window is built.
type ImageWindowConfig struct {
	Title       string
	Decorations bool
	AlwaysOnTop bool
	SkipTaskbar bool
	// OnMap runs on the event loop the first time the window is mapped.
	OnMap func()
	// OnDestroy runs once when the window goes away, however that happens.
	OnDestroy func()
}

// ImageWindow is a top-level X window whose background is a painted image.
// Left-dragging anywhere moves it.
type ImageWindow struct {
	conn *Connection
	win  *xwindow.Window

	mu        sync.Mutex
	surface   *xgraphics.Image
	hints     icccm.NormalHints
	mapped    bool
	destroyed bool
	onMap     func()
	onDestroy func()
}

// NewImageWindow creates an unmapped 1x1 window with cfg's chrome.
func (c *Connection) NewImageWindow(cfg ImageWindowConfig) (*ImageWindow, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, 0, 0, 1, 1, xproto.CwBackPixel, 0x000000)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	w := &ImageWindow{
		conn:      c,
		win:       win,
		onMap:     cfg.OnMap,
		onDestroy: cfg.OnDestroy,
	}

	if err := w.configure(cfg); err != nil {
		win.Destroy()
		return nil, err
	}
	return w, nil
}

func (w *ImageWindow) configure(cfg ImageWindowConfig) error {
	xu := w.conn.XUtil
	id := w.win.Id

	err := w.win.Listen(xproto.EventMaskStructureNotify, xproto.EventMaskExposure,
		xproto.EventMaskButtonPress, xproto.EventMaskKeyPress)
	if err != nil {
		return fmt.Errorf("failed to select window events: %w", err)
	}

	icccm.WmClassSet(xu, id, &icccm.WmClass{Instance: "sticky", Class: WindowClass})
	icccm.WmNameSet(xu, id, cfg.Title)
	ewmh.WmNameSet(xu, id, cfg.Title)
	// Accept focus so key bindings fire.
	icccm.WmHintsSet(xu, id, &icccm.Hints{Flags: icccm.HintInput, Input: 1})

	if !cfg.Decorations {
		err := motif.WmHintsSet(xu, id, &motif.Hints{
			Flags:      motif.HintDecorations,
			Decoration: motif.DecorationNone,
		})
		if err != nil {
			return fmt.Errorf("failed to remove decorations: %w", err)
		}
	}

	var states []string
	if cfg.AlwaysOnTop {
		states = append(states, "_NET_WM_STATE_ABOVE")
	}
	if cfg.SkipTaskbar {
		states = append(states, "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER")
	}
	if len(states) > 0 {
		if err := ewmh.WmStateSet(xu, id, states); err != nil {
			return fmt.Errorf("failed to set window state: %w", err)
		}
	}

	w.win.WMGracefulClose(func(*xwindow.Window) {
		w.Destroy()
	})

	xevent.MapNotifyFun(func(*xgbutil.XUtil, xevent.MapNotifyEvent) {
		w.mu.Lock()
		first := !w.mapped
		w.mapped = true
		w.mu.Unlock()
		if first && w.onMap != nil {
			w.onMap()
		}
	}).Connect(xu, id)

	xevent.ExposeFun(func(_ *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count == 0 {
			w.repaint()
		}
	}).Connect(xu, id)

	xevent.DestroyNotifyFun(func(*xgbutil.XUtil, xevent.DestroyNotifyEvent) {
		w.finish(false)
	}).Connect(xu, id)

	err = mousebind.ButtonPressFun(func(_ *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		w.beginMove(int(ev.RootX), int(ev.RootY))
	}).Connect(xu, id, "1", false, false)
	if err != nil {
		return fmt.Errorf("failed to bind drag button: %w", err)
	}
	return nil
}

// ID returns the X window id.
func (w *ImageWindow) ID() xproto.Window {
	return w.win.Id
}

// beginMove hands an in-progress left-button drag over to the window manager.
func (w *ImageWindow) beginMove(rootX, rootY int) {
	xu := w.conn.XUtil
	// The WM cannot grab the pointer while our implicit grab is active.
	xproto.UngrabPointer(xu.Conn(), xproto.TimeCurrentTime)
	ewmh.WmMoveresizeExtra(xu, w.win.Id, ewmh.Move, rootX, rootY, 1, sourceIndication)
}

// MoveResize places the window at x,y with a width x height client area.
func (w *ImageWindow) MoveResize(x, y, width, height int) {
	w.win.MoveResize(x, y, width, height)
}

// Resize changes the client area, keeping the current position.
func (w *ImageWindow) Resize(width, height int) {
	w.win.Resize(width, height)
}

// SetMinSize sets the WM_NORMAL_HINTS minimum size.
func (w *ImageWindow) SetMinSize(width, height int) error {
	w.mu.Lock()
	w.hints.Flags |= icccm.SizeHintPMinSize
	w.hints.MinWidth, w.hints.MinHeight = uint(width), uint(height)
	hints := w.hints
	w.mu.Unlock()
	return icccm.WmNormalHintsSet(w.conn.XUtil, w.win.Id, &hints)
}

// SetMaxSize sets the WM_NORMAL_HINTS maximum size.
func (w *ImageWindow) SetMaxSize(width, height int) error {
	w.mu.Lock()
	w.hints.Flags |= icccm.SizeHintPMaxSize
	w.hints.MaxWidth, w.hints.MaxHeight = uint(width), uint(height)
	hints := w.hints
	w.mu.Unlock()
	return icccm.WmNormalHintsSet(w.conn.XUtil, w.win.Id, &hints)
}

// Map shows the window.
func (w *ImageWindow) Map() {
	w.win.Map()
}

// Paint makes img the window's content, anchored at the top-left corner.
func (w *ImageWindow) Paint(img image.Image) error {
	surface := xgraphics.NewConvert(w.conn.XUtil, img)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		surface.Destroy()
		return fmt.Errorf("window %d is destroyed", w.win.Id)
	}
	if err := surface.XSurfaceSet(w.win.Id); err != nil {
		surface.Destroy()
		return fmt.Errorf("failed to attach image surface: %w", err)
	}
	surface.XDraw()
	surface.XPaint(w.win.Id)

	if w.surface != nil {
		w.surface.Destroy()
	}
	w.surface = surface
	return nil
}

func (w *ImageWindow) repaint() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.surface != nil && !w.destroyed {
		w.surface.XPaint(w.win.Id)
	}
}

// Destroy tears the window down. It is safe to call more than once.
func (w *ImageWindow) Destroy() {
	w.finish(true)
}

func (w *ImageWindow) finish(destroyX bool) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	surface := w.surface
	w.surface = nil
	w.mu.Unlock()

	if destroyX {
		w.win.Destroy()
	} else {
		w.win.Detach()
	}
	if surface != nil {
		surface.Destroy()
	}
	if w.onDestroy != nil {
		w.onDestroy()
	}
}
