package x11

import (
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

var ErrNoMonitors = errors.New("no monitors found")

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds image.Rectangle
	// Usable is Bounds minus panels and docks, per _NET_WORKAREA.
	Usable image.Rectangle
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		bounds := image.Rect(int(info.X), int(info.Y), int(info.X)+int(info.Width), int(info.Y)+int(info.Height))
		monitors = append(monitors, Monitor{ID: i, Name: name, Bounds: bounds, Usable: bounds})
	}

	return monitors, nil
}

// ActiveMonitor returns the monitor under the pointer, falling back to the
// first monitor. Usable is clipped to the current desktop's work area.
func (c *Connection) ActiveMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}

	active := &monitors[0]
	if pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		if mon := monitorAt(monitors, image.Pt(int(pointer.RootX), int(pointer.RootY))); mon != nil {
			active = mon
		}
	}

	if area, ok := c.currentWorkarea(); ok {
		active.Usable = clipToWorkarea(active.Bounds, area)
	}
	return active, nil
}

func (c *Connection) currentWorkarea() (image.Rectangle, bool) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(areas) == 0 {
		return image.Rectangle{}, false
	}

	idx := 0
	if desktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(desktop) < len(areas) {
		idx = int(desktop)
	}
	wa := areas[idx]
	return image.Rect(wa.X, wa.Y, wa.X+int(wa.Width), wa.Y+int(wa.Height)), true
}

// clipToWorkarea intersects bounds with area, keeping bounds when they do not
// overlap (a work area spanning another monitor only).
func clipToWorkarea(bounds, area image.Rectangle) image.Rectangle {
	usable := bounds.Intersect(area)
	if usable.Empty() {
		return bounds
	}
	return usable
}

func monitorAt(monitors []Monitor, p image.Point) *Monitor {
	for i := range monitors {
		if p.In(monitors[i].Bounds) {
			return &monitors[i]
		}
	}
	return nil
}
