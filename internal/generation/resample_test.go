package generation

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, width, height int, format imaging.Format) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func TestResampleToExact(t *testing.T) {
	t.Run("output matches target dimensions exactly", func(t *testing.T) {
		src := encodeTestImage(t, 100, 50, imaging.PNG)

		out, contentType, err := resampleToExact(src, 32, 32)

		require.NoError(t, err)
		assert.Equal(t, "image/png", contentType)

		decoded, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 32, decoded.Bounds().Dx())
		assert.Equal(t, 32, decoded.Bounds().Dy())
	})

	t.Run("upscaling also hits exact dimensions", func(t *testing.T) {
		src := encodeTestImage(t, 10, 10, imaging.PNG)

		out, _, err := resampleToExact(src, 64, 48)

		require.NoError(t, err)
		decoded, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 64, decoded.Bounds().Dx())
		assert.Equal(t, 48, decoded.Bounds().Dy())
	})

	t.Run("jpeg input stays jpeg", func(t *testing.T) {
		src := encodeTestImage(t, 100, 50, imaging.JPEG)

		_, contentType, err := resampleToExact(src, 32, 32)

		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", contentType)
	})

	t.Run("garbage input is rejected", func(t *testing.T) {
		_, _, err := resampleToExact([]byte("not an image"), 32, 32)
		assert.Error(t, err)
	})
}
