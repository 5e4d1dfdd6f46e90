// Package clipboard reads and writes images on the system clipboard.
package clipboard

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"

	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/source"
)

// Backend is the subset of golang.design/x/clipboard used here.
type Backend interface {
	Init() error
	ReadImage() []byte
	WriteImage(png []byte)
}

type systemBackend struct{}

func (systemBackend) Init() error       { return clipboard.Init() }
func (systemBackend) ReadImage() []byte { return clipboard.Read(clipboard.FmtImage) }
func (systemBackend) WriteImage(b []byte) {
	// The returned channel fires when another owner replaces the content.
	_ = clipboard.Write(clipboard.FmtImage, b)
}

// Clipboard adapts the system clipboard to source.ClipboardReader and can put
// images back on it.
type Clipboard struct {
	backend Backend
	logger  *slog.Logger

	initOnce sync.Once
	initErr  error
}

var _ source.ClipboardReader = (*Clipboard)(nil)

// New returns a clipboard backed by the system clipboard.
func New(logger *slog.Logger) *Clipboard {
	return NewWithBackend(systemBackend{}, logger)
}

// NewWithBackend is New with a custom backend.
func NewWithBackend(b Backend, logger *slog.Logger) *Clipboard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Clipboard{backend: b, logger: logger}
}

func (c *Clipboard) init() error {
	c.initOnce.Do(func() {
		if err := c.backend.Init(); err != nil {
			c.initErr = fmt.Errorf("failed to initialize clipboard: %w", err)
			return
		}
		c.logger.Debug("clipboard initialized")
	})
	return c.initErr
}

// ReadImage returns the clipboard image as a raw RGBA framebuffer, or nil, nil
// if the clipboard holds no image.
func (c *Clipboard) ReadImage() (*source.Framebuffer, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	data := c.backend.ReadImage()
	if len(data) == 0 {
		return nil, nil
	}
	c.logger.Debug("read clipboard image", "bytes", len(data))

	pixels, err := imagecodec.ToNRGBA(&imagecodec.Image{Bytes: data})
	if err != nil {
		return nil, fmt.Errorf("failed to decode clipboard image: %w", err)
	}
	b := pixels.Bounds()
	return &source.Framebuffer{
		Pix:    pixels.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
	}, nil
}

// WriteImage places img on the clipboard as PNG.
func (c *Clipboard) WriteImage(img *imagecodec.Image) error {
	if err := c.init(); err != nil {
		return err
	}

	data := img.Bytes
	if img.MIMEType != "image/png" {
		pixels, err := imagecodec.ToNRGBA(img)
		if err != nil {
			return fmt.Errorf("failed to decode image for clipboard: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, pixels); err != nil {
			return fmt.Errorf("failed to encode clipboard image: %w", err)
		}
		data = buf.Bytes()
	}

	c.backend.WriteImage(data)
	c.logger.Info("copied image to clipboard", "bytes", len(data), "source_mime", img.MIMEType)
	return nil
}
