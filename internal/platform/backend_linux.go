//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/hotkeys"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/x11"
)

// Publisher carries front-end messages to the delivery handshake.
type Publisher interface {
	Publish(ctx context.Context, m events.Message) error
}

// ActionFunc handles a key binding fired on the window labelled label.
type ActionFunc func(label string, action hotkeys.Action)

// LinuxConfig wires a LinuxBackend to the rest of the process.
type LinuxConfig struct {
	Conn     *x11.Connection
	Events   Publisher
	Keymap   hotkeys.Keymap
	OnAction ActionFunc
	Logger   *slog.Logger
}

// LinuxBackend creates pinned image windows on an X11 connection.
type LinuxBackend struct {
	conn     *x11.Connection
	events   Publisher
	keys     *hotkeys.Handler
	onAction ActionFunc
	logger   *slog.Logger
}

var _ WindowSystem = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux window system from an existing X11 connection.
func NewLinuxBackend(cfg LinuxConfig) (*LinuxBackend, error) {
	if cfg.Conn == nil {
		return nil, errors.New("platform: X11 connection is required")
	}
	if cfg.Events == nil {
		return nil, errors.New("platform: event publisher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LinuxBackend{
		conn:     cfg.Conn,
		events:   cfg.Events,
		keys:     hotkeys.NewHandler(cfg.Conn.XUtil, cfg.Keymap, logger),
		onAction: cfg.OnAction,
		logger:   logger,
	}, nil
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	b.conn.EventLoop()
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	b.conn.Quit()
}

// ActiveDisplay returns the display under the pointer.
func (b *LinuxBackend) ActiveDisplay() (Display, error) {
	mon, err := b.conn.ActiveMonitor()
	if err != nil {
		return Display{}, err
	}
	return displayFromMonitor(*mon), nil
}

// CreateWindow builds a hidden image window. Ready is published for label
// once the window is first mapped.
func (b *LinuxBackend) CreateWindow(label string, opts WindowOptions, onClose func()) (Window, error) {
	w := &linuxWindow{
		backend: b,
		label:   label,
		opts:    opts,
		scale:   1,
		logger:  b.logger.With("window", label),
	}

	var closeOnce sync.Once
	iw, err := b.conn.NewImageWindow(x11.ImageWindowConfig{
		Title:       opts.Title,
		Decorations: opts.Decorations,
		AlwaysOnTop: opts.AlwaysOnTop,
		SkipTaskbar: opts.SkipTaskbar,
		OnMap:       w.mapped,
		OnDestroy: func() {
			if onClose != nil {
				closeOnce.Do(onClose)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window %s: %w", label, err)
	}
	w.win = iw

	err = b.keys.Bind(iw.ID(), func(action hotkeys.Action) {
		if action == hotkeys.ActionClose {
			w.Destroy()
			return
		}
		if b.onAction != nil {
			b.onAction(label, action)
		}
	})
	if err != nil {
		// Unbound keys leave the window usable.
		w.logger.Warn("some key bindings failed", "error", err)
	}

	if opts.Centered {
		if display, err := b.ActiveDisplay(); err == nil {
			w.area = display.Usable
		} else {
			w.logger.Warn("cannot find active display, window will not be centered", "error", err)
		}
	}

	if opts.Visible {
		if err := w.Show(); err != nil {
			iw.Destroy()
			return nil, err
		}
	}
	return w, nil
}

type linuxWindow struct {
	backend *LinuxBackend
	win     *x11.ImageWindow
	label   string
	opts    WindowOptions
	logger  *slog.Logger

	mu sync.Mutex
	// scale is the display's own factor, used to turn logical sizes back
	// into device pixels even when an override decided the logical size.
	scale      float64
	scaleKnown bool
	// area is the usable region to center in; zero when not centering.
	area  Rect
	shown bool
}

func (w *linuxWindow) Label() string { return w.label }

func (w *linuxWindow) ScaleFactor() (float64, error) {
	scale, err := w.backend.conn.ScaleFactor()
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	w.scale = scale
	w.scaleKnown = true
	w.mu.Unlock()
	return scale, nil
}

func (w *linuxWindow) physical(logical geometry.Size) (int, int) {
	w.mu.Lock()
	scale, known := w.scale, w.scaleKnown
	w.mu.Unlock()
	if !known {
		if s, err := w.ScaleFactor(); err == nil {
			scale = s
		} else {
			w.logger.Warn("failed to query display scale, assuming 1", "error", err)
		}
	}
	if ExceedsWindowLimit(logical, scale) {
		w.logger.Warn("window size exceeds X11 limit, clamping",
			"logical", logical.String(), "scale", scale, "limit", MaxWindowDimension)
	}
	return PhysicalPixels(logical, scale)
}

func (w *linuxWindow) SetSize(logical geometry.Size) error {
	width, height := w.physical(logical)

	w.mu.Lock()
	center := w.opts.Centered && !w.shown && w.area.Width > 0
	area := w.area
	w.mu.Unlock()

	if center {
		x, y := area.Center(width, height)
		w.win.MoveResize(x, y, width, height)
		return nil
	}
	w.win.Resize(width, height)
	return nil
}

func (w *linuxWindow) SetMinSize(logical geometry.Size) error {
	width, height := w.physical(logical)
	return w.win.SetMinSize(width, height)
}

func (w *linuxWindow) SetMaxSize(logical geometry.Size) error {
	width, height := w.physical(logical)
	return w.win.SetMaxSize(width, height)
}

func (w *linuxWindow) Show() error {
	w.mu.Lock()
	w.shown = true
	w.mu.Unlock()
	w.win.Map()
	return nil
}

func (w *linuxWindow) Destroy() error {
	w.win.Destroy()
	return nil
}

// mapped runs on the event loop when the window first appears.
func (w *linuxWindow) mapped() {
	if err := w.backend.conn.ActivateWindow(w.win.ID()); err != nil {
		w.logger.Debug("failed to activate window", "error", err)
	}
	// The bus may be full; never block the event loop on it.
	go func() {
		if err := w.backend.events.Publish(context.Background(), events.Ready{Identity: w.label}); err != nil {
			w.logger.Warn("failed to publish ready", "error", err)
		}
	}()
}

// Deliver decodes the pushed payload and paints it.
func (w *linuxWindow) Deliver(m events.ImageAvailable) error {
	img, err := m.Payload.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode image for %s: %w", w.label, err)
	}
	pixels, err := imagecodec.ToNRGBA(img)
	if err != nil {
		return fmt.Errorf("failed to rasterize image for %s: %w", w.label, err)
	}
	return w.win.Paint(pixels)
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:     m.ID,
		Name:   m.Name,
		Bounds: rectFrom(m.Bounds),
		Usable: rectFrom(m.Usable),
	}
}

func rectFrom(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}
