package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// WatermarkAsset is the watermark image shared by every request. It is never
// modified after construction; callers transform copies.
type WatermarkAsset struct {
	img *image.NRGBA
}

// LoadWatermarkAsset reads the watermark from disk.
func LoadWatermarkAsset(path string) (*WatermarkAsset, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open watermark image %s: %w", path, err)
	}
	return NewWatermarkAsset(img)
}

// NewWatermarkAsset snapshots img so later changes to it do not leak in.
func NewWatermarkAsset(img image.Image) (*WatermarkAsset, error) {
	if img == nil {
		return nil, fmt.Errorf("nil watermark image")
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("watermark image has no pixels")
	}
	return &WatermarkAsset{img: imaging.Clone(img)}, nil
}

func (a *WatermarkAsset) Size() image.Point {
	return a.img.Bounds().Size()
}

// Image returns a private copy of the watermark.
func (a *WatermarkAsset) Image() *image.NRGBA {
	return imaging.Clone(a.img)
}

// applyOpacity multiplies every alpha value of img by opacity in place.
func applyOpacity(img *image.NRGBA, opacity float64) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			row[i] = scaleAlpha(row[i], opacity)
		}
	}
}

// scaleAlpha computes a*factor in single precision, truncates it and
// saturates it to [0, 255].
func scaleAlpha(a uint8, factor float64) uint8 {
	v := float32(a) * float32(factor)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// compositeOver pastes wm at the given offset onto a transparent overlay,
// using wm's alpha as the paste mask, then alpha-composites the overlay over
// a copy of input.
func compositeOver(input image.Image, wm *image.NRGBA, at image.Point) *image.NRGBA {
	out := imaging.Clone(input)
	alphaComposite(out, pasteMasked(wm, at))
	return out
}

// pasteMasked returns the part of the overlay covered by wm. Every channel,
// alpha included, is blended from the overlay's transparent black toward wm
// by wm's own alpha, so the overlay holds c*a/255 with alpha a*a/255. The
// rest of the overlay stays fully transparent.
func pasteMasked(wm *image.NRGBA, at image.Point) *image.NRGBA {
	b := wm.Bounds()
	overlay := image.NewNRGBA(image.Rectangle{Min: at, Max: at.Add(b.Size())})

	for y := 0; y < b.Dy(); y++ {
		src := wm.Pix[wm.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := overlay.Pix[y*overlay.Stride:]
		for x := 0; x < 4*b.Dx(); x += 4 {
			m := uint32(src[x+3])
			for c := 0; c < 4; c++ {
				dst[x+c] = uint8(div255(uint32(src[x+c]) * m))
			}
		}
	}
	return overlay
}

const compositePrecisionBits = 7

// alphaComposite blends src over dst in place with straight (non
// premultiplied) alpha, in fixed point. Pixels where src is fully
// transparent keep dst unchanged, color included.
func alphaComposite(dst, src *image.NRGBA) {
	r := src.Bounds().Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i, j := src.PixOffset(x, y), dst.PixOffset(x, y)
			s, d := src.Pix[i:i+4:i+4], dst.Pix[j:j+4:j+4]

			sa := uint32(s[3])
			if sa == 0 {
				continue
			}

			outA255 := sa*255 + uint32(d[3])*(255-sa)
			coef1 := sa * 255 * 255 << compositePrecisionBits / outA255
			coef2 := 255<<compositePrecisionBits - coef1
			for c := 0; c < 3; c++ {
				v := uint32(s[c])*coef1 + uint32(d[c])*coef2 + 0x80<<compositePrecisionBits
				d[c] = uint8(shiftDiv255(v) >> compositePrecisionBits)
			}
			d[3] = uint8(shiftDiv255(outA255 + 0x80))
		}
	}
}

// div255 is x/255 rounded to nearest for x in [0, 255*255].
func div255(x uint32) uint32 {
	x += 128
	return ((x >> 8) + x) >> 8
}

func shiftDiv255(x uint32) uint32 {
	return ((x >> 8) + x) >> 8
}

// flatten discards the alpha channel. Color values are kept as stored, so
// translucent pixels are not darkened.
func flatten(img *image.NRGBA) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		src := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		dst := out.Pix[out.PixOffset(bounds.Min.X, y):]
		for i := 0; i < len(src); i += 4 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i], src[i+1], src[i+2], 0xff
		}
	}
	return out
}
