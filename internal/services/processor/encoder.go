package processor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"

	DefaultQuality = 90
)

// EncodeDataURI encodes img in the given raster format and wraps it as
// data:image/<format>;base64,<payload>. An empty format means PNG.
func EncodeDataURI(img image.Image, format string) (string, error) {
	format = normalizeFormat(format)

	var buf bytes.Buffer
	if err := encodeImage(&buf, img, format, DefaultQuality); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func encodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func normalizeFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		return FormatPNG
	case "jpg":
		return FormatJPEG
	default:
		return f
	}
}
