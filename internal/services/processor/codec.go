package processor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	// Register decoders beyond the standard library ones.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrDecode is wrapped by every failure of DecodeDataURI.
var ErrDecode = errors.New("decode error")

// DecodeDataURI turns a data URI into a non-premultiplied RGBA buffer. The
// header before the first comma is not inspected.
func DecodeDataURI(uri string) (*image.NRGBA, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, fmt.Errorf("%w: data URI has no comma separator", ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(base64Alphabet(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %w", ErrDecode, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %w", ErrDecode, err)
	}

	return imaging.Clone(img), nil
}

// DataURIPayload returns the raw bytes carried by a data URI together with
// the MIME type from its header ("" when the header has none).
func DataURIPayload(uri string) ([]byte, string, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, "", fmt.Errorf("%w: data URI has no comma separator", ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(base64Alphabet(payload))
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid base64 payload: %w", ErrDecode, err)
	}

	mimeType := strings.TrimPrefix(header, "data:")
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return data, mimeType, nil
}

// base64Alphabet drops every character outside the standard base64 alphabet,
// so payloads wrapped or padded with whitespace still decode.
func base64Alphabet(payload string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
			return r
		default:
			return -1
		}
	}, payload)
}
