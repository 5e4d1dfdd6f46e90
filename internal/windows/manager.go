// Package windows creates pinned image windows and tracks them until they
// close.
package windows

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/handshake"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/platform"
)

var (
	ErrUnknownWindow = errors.New("unknown window")
	// ErrClosedDuringSetup is returned by Open when the window was destroyed
	// before it was shown.
	ErrClosedDuringSetup = errors.New("window closed during setup")
)

// Info describes an open window.
type Info struct {
	Identity    Identity      `json:"identity"`
	Path        string        `json:"path,omitempty"`
	MIMEType    string        `json:"mime_type"`
	Physical    geometry.Size `json:"physical"`
	Logical     geometry.Size `json:"logical"`
	ScaleFactor float64       `json:"scale_factor"`
	Delivery    string        `json:"delivery"`
	OpenedAt    time.Time     `json:"opened_at"`
}

type openWindow struct {
	win  platform.Window
	img  *imagecodec.Image
	info Info
}

// Config holds the collaborators a Manager needs.
type Config struct {
	System   platform.WindowSystem
	Counter  *Counter
	Registry *handshake.Registry
	Scale    geometry.ScaleSource
	Logger   *slog.Logger
}

// Manager owns every pinned window in the process.
type Manager struct {
	system   platform.WindowSystem
	counter  *Counter
	registry *handshake.Registry
	scale    geometry.ScaleSource
	logger   *slog.Logger

	mu   sync.Mutex
	open map[Identity]*openWindow
	// setup holds windows Open is still building; true once their close
	// hook has fired.
	setup map[Identity]bool
}

// NewManager validates cfg and returns a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.System == nil {
		return nil, fmt.Errorf("window system is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("handshake registry is required")
	}
	if cfg.Counter == nil {
		cfg.Counter = &Counter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		system:   cfg.System,
		counter:  cfg.Counter,
		registry: cfg.Registry,
		scale:    cfg.Scale,
		logger:   cfg.Logger,
		open:     make(map[Identity]*openWindow),
		setup:    make(map[Identity]bool),
	}, nil
}

// Open pins img in a new window and arms its delivery. path is the source file
// and may be empty. A failure aborts only this window.
func (m *Manager) Open(img *imagecodec.Image, path string) (id Identity, err error) {
	if img == nil {
		return "", fmt.Errorf("failed to open window: no image")
	}

	id = m.counter.Next()
	logger := m.logger.With("identity", id)

	m.mu.Lock()
	m.setup[id] = false
	m.mu.Unlock()

	var win platform.Window
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to open window %s: panic: %v", id, r)
		}
		switch {
		case errors.Is(err, ErrClosedDuringSetup):
			// Already destroyed; only the bookkeeping is left.
			m.forget(id)
			logger.Info("window closed before it was shown")
		case err != nil:
			m.abort(id, win)
			logger.Error("window setup aborted", "error", err)
		}
		m.mu.Lock()
		delete(m.setup, id)
		m.mu.Unlock()
	}()

	win, err = m.system.CreateWindow(string(id), platform.PinnedWindowOptions(windowTitle(path)), func() {
		m.forget(id)
	})
	if err != nil {
		return id, fmt.Errorf("failed to create window %s: %w", id, err)
	}

	m.mu.Lock()
	if m.setup[id] {
		m.mu.Unlock()
		return id, fmt.Errorf("%w: %s", ErrClosedDuringSetup, id)
	}
	m.open[id] = &openWindow{win: win, img: img, info: Info{
		Identity: id,
		Path:     path,
		MIMEType: img.MIMEType,
		OpenedAt: time.Now(),
	}}
	m.mu.Unlock()

	payload := imagecodec.EncodeTransport(img)
	if err = m.registry.Arm(string(id), payload, path, win); err != nil {
		return id, err
	}
	// A close before Arm had no delivery to cancel.
	if m.closedDuringSetup(id) {
		return id, fmt.Errorf("%w: %s", ErrClosedDuringSetup, id)
	}

	scale, err := m.scale.Resolve(win.ScaleFactor)
	if err != nil {
		return id, fmt.Errorf("failed to resolve scale factor for %s: %w", id, err)
	}
	geo := geometry.Compute(img.Dimensions, scale)

	if err = applyFixedSize(win, geo.Logical); err != nil {
		return id, fmt.Errorf("failed to size window %s: %w", id, err)
	}

	m.mu.Lock()
	if ow, ok := m.open[id]; ok {
		ow.info.Physical = geo.Physical
		ow.info.Logical = geo.Logical
		ow.info.ScaleFactor = scale
	}
	m.mu.Unlock()

	if m.closedDuringSetup(id) {
		return id, fmt.Errorf("%w: %s", ErrClosedDuringSetup, id)
	}
	if err = win.Show(); err != nil {
		return id, fmt.Errorf("failed to show window %s: %w", id, err)
	}

	logger.Info("window opened",
		"path", path,
		"mime", img.MIMEType,
		"physical", geo.Physical.String(),
		"logical", geo.Logical.String(),
		"scale", scale,
	)
	return id, nil
}

// applyFixedSize sets size, min and max to the same logical size. The
// non-resizable flag alone is not honoured by every window manager.
func applyFixedSize(win platform.Window, logical geometry.Size) error {
	if err := win.SetSize(logical); err != nil {
		return err
	}
	if err := win.SetMinSize(logical); err != nil {
		return err
	}
	return win.SetMaxSize(logical)
}

// SetFixedSize re-pins an open window to logical.
func (m *Manager) SetFixedSize(id Identity, logical geometry.Size) (err error) {
	if logical.Width <= 0 || logical.Height <= 0 {
		return fmt.Errorf("invalid size %s", logical)
	}

	m.mu.Lock()
	ow, ok := m.open[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWindow, id)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to resize window %s: panic: %v", id, r)
		}
	}()
	if err := applyFixedSize(ow.win, logical); err != nil {
		return fmt.Errorf("failed to resize window %s: %w", id, err)
	}

	m.mu.Lock()
	ow.info.Logical = logical
	m.mu.Unlock()
	return nil
}

// Close destroys one window.
func (m *Manager) Close(id Identity) error {
	m.mu.Lock()
	ow, ok := m.open[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWindow, id)
	}

	err := ow.win.Destroy()
	// The close hook normally does this; make sure even if the backend did not fire it.
	m.forget(id)
	if err != nil {
		return fmt.Errorf("failed to close window %s: %w", id, err)
	}
	return nil
}

// CloseAll destroys every open window and returns the first error.
func (m *Manager) CloseAll() error {
	var firstErr error
	for _, info := range m.List() {
		if err := m.Close(info.Identity); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// List returns open windows ordered by creation.
func (m *Manager) List() []Info {
	m.mu.Lock()
	infos := make([]Info, 0, len(m.open))
	for id, ow := range m.open {
		info := ow.info
		info.Delivery = m.registry.State(string(id)).String()
		infos = append(infos, info)
	}
	m.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return identityOrdinal(infos[i].Identity) < identityOrdinal(infos[j].Identity)
	})
	return infos
}

// Lookup returns the info for an open window.
func (m *Manager) Lookup(id Identity) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ow, ok := m.open[id]
	if !ok {
		return Info{}, false
	}
	info := ow.info
	info.Delivery = m.registry.State(string(id)).String()
	return info, true
}

// Image returns the image pinned in an open window.
func (m *Manager) Image(id Identity) (*imagecodec.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ow, ok := m.open[id]
	if !ok {
		return nil, false
	}
	return ow.img, true
}

// Count returns the number of open windows.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

func (m *Manager) closedDuringSetup(id Identity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setup[id]
}

// forget is the close hook: it drops the window and any pending delivery.
func (m *Manager) forget(id Identity) {
	m.mu.Lock()
	_, ok := m.open[id]
	delete(m.open, id)
	if _, building := m.setup[id]; building {
		m.setup[id] = true
	}
	m.mu.Unlock()

	if m.registry.Cancel(string(id)) {
		m.logger.Info("window closed before its image was delivered", "identity", id)
	} else if ok {
		m.logger.Debug("window closed", "identity", id)
	}
}

func (m *Manager) abort(id Identity, win platform.Window) {
	if win != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("destroying failed window panicked", "identity", id, "panic", r)
				}
			}()
			if err := win.Destroy(); err != nil {
				m.logger.Warn("failed to destroy window", "identity", id, "error", err)
			}
		}()
	}
	m.forget(id)
}

func windowTitle(path string) string {
	if path == "" {
		return "sticky"
	}
	return "sticky - " + filepath.Base(path)
}

func identityOrdinal(id Identity) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(string(id), identityPrefix), 10, 64)
	if err != nil {
		return ^uint64(0)
	}
	return n
}
