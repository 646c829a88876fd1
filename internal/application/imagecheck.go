package application

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"regexp"

	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/ericfisherdev/pagescan/internal/domain/model"
)

// DefaultMaxImageBytes is the encoded-size ceiling for OCR input. Images of
// exactly this size are rejected.
const DefaultMaxImageBytes = 10 << 20

var dataURLPattern = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp);base64,`)

// DecodeDataURL extracts the image bytes from a base64 data URL as produced
// by canvas.toDataURL. Only PNG, JPEG, GIF and WebP media types are accepted.
func DecodeDataURL(s string) ([]byte, error) {
	loc := dataURLPattern.FindStringIndex(s)
	if loc == nil {
		return nil, fmt.Errorf("%w: expected a data:image/(png|jpeg|gif|webp);base64 URL", ErrInvalidFormat)
	}

	data, err := base64.StdEncoding.DecodeString(s[loc[1]:])
	if err != nil {
		return nil, fmt.Errorf("%w: base64 payload: %w", ErrInvalidFormat, err)
	}
	return data, nil
}

// DetectImageFormat identifies the raster format of an encoded image by
// decoding its header.
func DetectImageFormat(data []byte) (model.ImageFormat, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	format, ok := model.ParseImageFormat(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidFormat, name)
	}
	return format, nil
}
