// Package imagecodec turns raw image bytes into normalized image records and
// back into the data-URL payloads handed to window front-ends.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// MIME type reported for images built from a raw framebuffer.
const FramebufferMIMEType = "image/png"

// mimeTypes maps the format names registered with package image to MIME types.
var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
	"image/webp": ".webp",
}

// Extension returns the file extension, with the dot, for a supported MIME
// type, or ".png" otherwise.
func Extension(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".png"
}

// Dimensions is the pixel size of an image.
type Dimensions struct {
	Width  uint32
	Height uint32
}

// Image is a decoded-and-verified image record. It is never mutated after
// construction.
type Image struct {
	MIMEType   string
	Bytes      []byte
	Dimensions Dimensions
}

// Decode sniffs the format of data from its content and fully decodes it to
// obtain authoritative pixel dimensions.
func Decode(data []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, &DecodeError{Kind: UnrecognizedFormat, Err: err}
		}
		return nil, &DecodeError{Kind: Corrupt, Err: err}
	}

	mime, ok := mimeTypes[format]
	if !ok {
		return nil, &DecodeError{Kind: UnrecognizedFormat, Err: fmt.Errorf("no MIME type for format %q", format)}
	}

	return &Image{
		MIMEType:   mime,
		Bytes:      data,
		Dimensions: dimensionsOf(img.Bounds()),
	}, nil
}

// DecodeFile reads path and decodes it. The file name is only used for error
// reporting.
func DecodeFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Kind: IO, Path: path, Err: err}
	}

	img, err := Decode(data)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.Path = path
		}
		return nil, err
	}
	return img, nil
}

// FromRawFramebuffer encodes an 8-bit straight-alpha RGBA buffer as PNG.
//
// Width and height must both be non-zero. It panics on an empty framebuffer
// or when len(pix) != width*height*4: callers own producing a well-formed
// framebuffer.
func FromRawFramebuffer(pix []byte, width, height uint32) *Image {
	if width == 0 || height == 0 {
		panic(fmt.Sprintf("imagecodec: empty %dx%d framebuffer", width, height))
	}
	want := uint64(width) * uint64(height) * 4
	if uint64(len(pix)) != want {
		panic(fmt.Sprintf("imagecodec: framebuffer is %d bytes, want %d for %dx%d RGBA", len(pix), want, width, height))
	}

	rgba := &image.NRGBA{
		Pix:    pix,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		panic(fmt.Sprintf("imagecodec: encode %dx%d framebuffer: %v", width, height, err))
	}

	return &Image{
		MIMEType:   FramebufferMIMEType,
		Bytes:      buf.Bytes(),
		Dimensions: Dimensions{Width: width, Height: height},
	}
}

// ToNRGBA decodes img back into straight-alpha pixels.
func ToNRGBA(img *Image) (*image.NRGBA, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return nil, &DecodeError{Kind: Corrupt, Err: err}
	}
	return asNRGBA(decoded), nil
}

// asNRGBA converts any image to an origin-anchored *image.NRGBA with a tight
// stride.
func asNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
}

func dimensionsOf(r image.Rectangle) Dimensions {
	return Dimensions{Width: uint32(r.Dx()), Height: uint32(r.Dy())}
}
