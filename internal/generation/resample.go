package generation

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"
)

// resampleToExact resamples an image to exactly width x height pixels using
// a fill/crop resample. Downstream consumers assume the transformed output
// matches the original dimensions exactly, so letterboxing is not an option.
// The source encoding (PNG or JPEG) is preserved.
func resampleToExact(data []byte, width, height int) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode result image: %w", err)
	}

	filled := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	format := imaging.JPEG
	contentType := "image/jpeg"
	if http.DetectContentType(data) == "image/png" {
		format = imaging.PNG
		contentType = "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, filled, format); err != nil {
		return nil, "", fmt.Errorf("failed to encode resampled image: %w", err)
	}

	return buf.Bytes(), contentType, nil
}
