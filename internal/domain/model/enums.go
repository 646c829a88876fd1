package model

import (
	"path/filepath"
	"strings"
)

// ImageFormat identifies an accepted raster format for OCR input.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatGIF  ImageFormat = "gif"
	ImageFormatWebP ImageFormat = "webp"
)

// Extension returns the file extension (without dot) used when the image is stored.
func (f ImageFormat) Extension() string {
	if f == ImageFormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	switch f {
	case ImageFormatPNG, ImageFormatJPEG, ImageFormatGIF, ImageFormatWebP:
		return "image/" + string(f)
	default:
		return "application/octet-stream"
	}
}

// ParseImageFormat maps a format name or MIME subtype ("jpg", "jpeg", "png",
// ...) to an ImageFormat. ok is false for anything unsupported.
func ParseImageFormat(name string) (ImageFormat, bool) {
	switch strings.ToLower(name) {
	case "png":
		return ImageFormatPNG, true
	case "jpg", "jpeg":
		return ImageFormatJPEG, true
	case "gif":
		return ImageFormatGIF, true
	case "webp":
		return ImageFormatWebP, true
	default:
		return "", false
	}
}

// ContentTypeForFilename derives a Content-Type from a stored image filename's
// extension. Unknown extensions map to application/octet-stream.
func ContentTypeForFilename(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	f, ok := ParseImageFormat(ext)
	if !ok {
		return "application/octet-stream"
	}
	return f.ContentType()
}
