package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// scaledWatermarkSize computes the resized watermark dimensions. Each axis is
// scaled by scaleFactor/smallest where scaleFactor = smallest*ratio, with
// truncation toward zero.
func scaledWatermarkSize(canvas, watermark image.Point, ratio float64) (image.Point, error) {
	smallest := min(canvas.X, canvas.Y)
	if smallest <= 0 {
		return image.Point{}, fmt.Errorf("%w: input image has no pixels (%dx%d)", ErrInvalidParameters, canvas.X, canvas.Y)
	}

	scaleFactor := float64(smallest) * ratio
	size := image.Pt(
		int(float64(watermark.X)*scaleFactor/float64(smallest)),
		int(float64(watermark.Y)*scaleFactor/float64(smallest)),
	)
	if size.X <= 0 || size.Y <= 0 {
		return image.Point{}, fmt.Errorf("%w: watermark would be resized to %dx%d", ErrInvalidParameters, size.X, size.Y)
	}

	return size, nil
}

// resizeWatermark returns a new nearest-neighbour resized copy; src is not
// modified.
func resizeWatermark(src image.Image, size image.Point) *image.NRGBA {
	return imaging.Resize(src, size.X, size.Y, imaging.NearestNeighbor)
}
