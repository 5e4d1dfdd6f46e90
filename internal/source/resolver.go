// Package source decides which image a new window shows: the file named on
// the command line, or whatever image is on the clipboard.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
)

// Framebuffer is a raw 8-bit RGBA snapshot.
type Framebuffer struct {
	Pix    []byte
	Width  uint32
	Height uint32
}

// ClipboardReader reads the current clipboard image. It returns nil, nil when
// the clipboard holds no image.
type ClipboardReader interface {
	ReadImage() (*Framebuffer, error)
}

// Origin records where a resolved image came from.
type Origin int

const (
	OriginNone Origin = iota
	OriginFile
	OriginClipboard
)

func (o Origin) String() string {
	switch o {
	case OriginFile:
		return "file"
	case OriginClipboard:
		return "clipboard"
	default:
		return "none"
	}
}

// Result is the outcome of one resolution.
type Result struct {
	Image  *imagecodec.Image
	Origin Origin
	// Path is set when Origin is OriginFile.
	Path string
	// FallbackReason explains why a requested path was not used.
	FallbackReason string
}

// FellBack reports whether a path was requested but the clipboard was used.
func (r Result) FellBack() bool {
	return r.FallbackReason != "" && r.Origin == OriginClipboard
}

// Resolver applies the source precedence: file first, then clipboard.
type Resolver struct {
	Clipboard ClipboardReader
	Logger    *slog.Logger
}

// Resolve returns the image for path (may be empty). It never fails: every
// problem is logged and the next source is tried. A nil image means there is
// nothing to show.
func (r *Resolver) Resolve(path string) (*imagecodec.Image, Origin) {
	res := r.ResolveDetailed(path)
	return res.Image, res.Origin
}

// ResolveDetailed is Resolve with the fallback reason attached.
func (r *Resolver) ResolveDetailed(path string) Result {
	logger := r.logger()
	var reason string

	if path != "" {
		img, err := r.fromFile(path)
		if err == nil {
			logger.Info("image source resolved", "origin", OriginFile, "path", path)
			return Result{Image: img, Origin: OriginFile, Path: path}
		}
		reason = err.Error()
	}

	if img := r.fromClipboard(); img != nil {
		if reason != "" {
			logger.Info("image source resolved", "origin", OriginClipboard, "fallback_from", path)
		} else {
			logger.Info("image source resolved", "origin", OriginClipboard)
		}
		return Result{Image: img, Origin: OriginClipboard, FallbackReason: reason}
	}

	logger.Info("no image available from any source", "path", path)
	return Result{Origin: OriginNone, FallbackReason: reason}
}

func (r *Resolver) fromFile(path string) (*imagecodec.Image, error) {
	logger := r.logger()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("image path does not exist, trying clipboard", "path", path)
			return nil, fmt.Errorf("%s does not exist", path)
		}
		logger.Warn("cannot stat image path, trying clipboard", "path", path, "error", err)
		return nil, err
	}
	if info.IsDir() {
		logger.Warn("image path is a directory, trying clipboard", "path", path)
		return nil, fmt.Errorf("%s is a directory", path)
	}

	img, err := imagecodec.DecodeFile(path)
	if err != nil {
		logger.Warn("failed to decode image, trying clipboard", "path", path, "error", err)
		return nil, err
	}
	return img, nil
}

// fromClipboard converts the clipboard framebuffer. A malformed framebuffer
// aborts only this acquisition.
func (r *Resolver) fromClipboard() (img *imagecodec.Image) {
	if r.Clipboard == nil {
		return nil
	}
	logger := r.logger()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("clipboard framebuffer rejected", "panic", rec)
			img = nil
		}
	}()

	fb, err := r.Clipboard.ReadImage()
	if err != nil {
		logger.Warn("failed to read clipboard", "error", err)
		return nil
	}
	if fb == nil {
		logger.Debug("clipboard holds no image")
		return nil
	}
	if fb.Width == 0 || fb.Height == 0 {
		logger.Debug("clipboard image is empty", "width", fb.Width, "height", fb.Height)
		return nil
	}
	return imagecodec.FromRawFramebuffer(fb.Pix, fb.Width, fb.Height)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
