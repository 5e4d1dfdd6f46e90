// Package platform abstracts the native windowing system that hosts pinned
// images.
package platform

import (
	"math"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
)

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Center returns the top-left corner that centers a w x h box inside r.
func (r Rect) Center(w, h int) (int, int) {
	return r.X + (r.Width-w)/2, r.Y + (r.Height-h)/2
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// WindowOptions are the chrome and behaviour flags a window is built with.
type WindowOptions struct {
	Title       string
	Decorations bool
	AlwaysOnTop bool
	SkipTaskbar bool
	Resizable   bool
	Visible     bool
	// Centered places the window in the middle of the active display and keeps
	// it there across SetSize calls made before Show.
	Centered bool
}

// PinnedWindowOptions are the flags every image window uses.
func PinnedWindowOptions(title string) WindowOptions {
	return WindowOptions{
		Title:       title,
		Decorations: false,
		AlwaysOnTop: true,
		SkipTaskbar: true,
		Resizable:   false,
		Visible:     false,
		Centered:    true,
	}
}

// Window is a native window hosting one image front-end.
type Window interface {
	Label() string
	// ScaleFactor is the live factor of the display the window is on.
	ScaleFactor() (float64, error)
	SetSize(logical geometry.Size) error
	SetMinSize(logical geometry.Size) error
	SetMaxSize(logical geometry.Size) error
	Show() error
	Destroy() error
	// Deliver pushes an image to the window's front-end.
	Deliver(events.ImageAvailable) error
}

// WindowSystem creates native windows.
type WindowSystem interface {
	// CreateWindow builds a window labelled label. onClose runs once when the
	// window is destroyed, whether by Destroy or by the user.
	CreateWindow(label string, opts WindowOptions, onClose func()) (Window, error)
}

// MaxWindowDimension is the largest width or height X11 can express.
const MaxWindowDimension = math.MaxUint16

// PhysicalPixels converts a logical size to whole device pixels at scale,
// never returning less than 1x1 or more than MaxWindowDimension per side.
func PhysicalPixels(logical geometry.Size, scale float64) (int, int) {
	w, h := unclampedPixels(logical, scale)
	return clampDimension(w), clampDimension(h)
}

// ExceedsWindowLimit reports whether PhysicalPixels clamps logical at scale.
func ExceedsWindowLimit(logical geometry.Size, scale float64) bool {
	w, h := unclampedPixels(logical, scale)
	return w > MaxWindowDimension || h > MaxWindowDimension
}

func unclampedPixels(logical geometry.Size, scale float64) (float64, float64) {
	return math.Round(logical.Width * scale), math.Round(logical.Height * scale)
}

func clampDimension(v float64) int {
	return int(min(max(v, 1), MaxWindowDimension))
}
