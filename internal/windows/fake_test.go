package windows

import (
	"errors"
	"fmt"
	"sync"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/platform"
)

type fakeSystem struct {
	mu      sync.Mutex
	windows map[string]*fakeWindow
	scale   float64

	// failCreate and panicOnSize select labels whose setup misbehaves.
	failCreate  map[string]bool
	panicOnSize map[string]bool
	// closeOnCreate labels are destroyed by the window manager as soon as
	// they are created, before CreateWindow returns.
	closeOnCreate map[string]bool
	// onScale runs when a window's scale factor is queried.
	onScale func(label string)
}

func newFakeSystem(scale float64) *fakeSystem {
	return &fakeSystem{
		windows:       make(map[string]*fakeWindow),
		scale:         scale,
		failCreate:    make(map[string]bool),
		panicOnSize:   make(map[string]bool),
		closeOnCreate: make(map[string]bool),
	}
}

func (s *fakeSystem) CreateWindow(label string, opts platform.WindowOptions, onClose func()) (platform.Window, error) {
	s.mu.Lock()
	if s.failCreate[label] {
		s.mu.Unlock()
		return nil, errors.New("no display")
	}
	w := &fakeWindow{
		sys:         s,
		label:       label,
		opts:        opts,
		onClose:     onClose,
		panicOnSize: s.panicOnSize[label],
	}
	w.record("create")
	s.windows[label] = w
	closeNow := s.closeOnCreate[label]
	s.mu.Unlock()

	if closeNow {
		w.userClose()
	}
	return w, nil
}

func (s *fakeSystem) window(label string) *fakeWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[label]
}

type fakeWindow struct {
	sys         *fakeSystem
	label       string
	opts        platform.WindowOptions
	onClose     func()
	panicOnSize bool

	mu        sync.Mutex
	ops       []string
	size      geometry.Size
	min, max  geometry.Size
	visible   bool
	destroyed bool
	delivered []events.ImageAvailable
}

func (w *fakeWindow) record(op string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ops = append(w.ops, op)
}

func (w *fakeWindow) Label() string { return w.label }

func (w *fakeWindow) ScaleFactor() (float64, error) {
	w.record("scale")
	if w.sys.onScale != nil {
		w.sys.onScale(w.label)
	}
	return w.sys.scale, nil
}

func (w *fakeWindow) SetSize(s geometry.Size) error {
	if w.panicOnSize {
		panic("resize exploded")
	}
	w.record("size")
	w.mu.Lock()
	w.size = s
	w.mu.Unlock()
	return nil
}

func (w *fakeWindow) SetMinSize(s geometry.Size) error {
	w.record("min")
	w.mu.Lock()
	w.min = s
	w.mu.Unlock()
	return nil
}

func (w *fakeWindow) SetMaxSize(s geometry.Size) error {
	w.record("max")
	w.mu.Lock()
	w.max = s
	w.mu.Unlock()
	return nil
}

func (w *fakeWindow) Show() error {
	w.record("show")
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
	return nil
}

func (w *fakeWindow) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return fmt.Errorf("%s already destroyed", w.label)
	}
	w.destroyed = true
	w.ops = append(w.ops, "destroy")
	w.mu.Unlock()

	if w.onClose != nil {
		w.onClose()
	}
	return nil
}

func (w *fakeWindow) Deliver(m events.ImageAvailable) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delivered = append(w.delivered, m)
	return nil
}

// userClose simulates the window manager destroying the window.
func (w *fakeWindow) userClose() {
	_ = w.Destroy()
}

func (w *fakeWindow) snapshot() (ops []string, size, min, max geometry.Size, visible, destroyed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ops...), w.size, w.min, w.max, w.visible, w.destroyed
}
