package clipboard

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
)

type fakeBackend struct {
	initErr   error
	initCalls int
	content   []byte
}

func (f *fakeBackend) Init() error {
	f.initCalls++
	return f.initErr
}

func (f *fakeBackend) ReadImage() []byte { return f.content }

func (f *fakeBackend) WriteImage(b []byte) { f.content = b }

func encode(t *testing.T, enc func(*bytes.Buffer, image.Image) error, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, img))
	return buf.Bytes()
}

func pngEnc(b *bytes.Buffer, img image.Image) error  { return png.Encode(b, img) }
func jpegEnc(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) }

func TestReadImage_Empty(t *testing.T) {
	c := NewWithBackend(&fakeBackend{}, nil)
	fb, err := c.ReadImage()
	require.NoError(t, err)
	assert.Nil(t, fb)
}

func TestReadImage_Framebuffer(t *testing.T) {
	backend := &fakeBackend{content: encode(t, pngEnc, 3, 2)}
	c := NewWithBackend(backend, nil)

	fb, err := c.ReadImage()
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, uint32(3), fb.Width)
	assert.Equal(t, uint32(2), fb.Height)
	assert.Len(t, fb.Pix, 3*2*4)
	assert.Equal(t, []byte{1, 2, 3, 255}, fb.Pix[:4])

	_, err = c.ReadImage()
	require.NoError(t, err)
	assert.Equal(t, 1, backend.initCalls)
}

func TestReadImage_Garbage(t *testing.T) {
	c := NewWithBackend(&fakeBackend{content: []byte("nope")}, nil)
	_, err := c.ReadImage()
	assert.Error(t, err)
}

func TestInitFailureIsSticky(t *testing.T) {
	backend := &fakeBackend{initErr: errors.New("no X server")}
	c := NewWithBackend(backend, nil)

	_, err := c.ReadImage()
	require.Error(t, err)
	err = c.WriteImage(&imagecodec.Image{MIMEType: "image/png"})
	require.Error(t, err)
	assert.Equal(t, 1, backend.initCalls)
}

func TestWriteImage(t *testing.T) {
	t.Run("png is written as is", func(t *testing.T) {
		backend := &fakeBackend{}
		data := encode(t, pngEnc, 2, 2)
		img, err := imagecodec.Decode(data)
		require.NoError(t, err)

		require.NoError(t, NewWithBackend(backend, nil).WriteImage(img))
		assert.Equal(t, data, backend.content)
	})

	t.Run("other formats are converted to png", func(t *testing.T) {
		backend := &fakeBackend{}
		img, err := imagecodec.Decode(encode(t, jpegEnc, 4, 4))
		require.NoError(t, err)

		require.NoError(t, NewWithBackend(backend, nil).WriteImage(img))
		got, err := imagecodec.Decode(backend.content)
		require.NoError(t, err)
		assert.Equal(t, "image/png", got.MIMEType)
		assert.Equal(t, img.Dimensions, got.Dimensions)
	})
}
