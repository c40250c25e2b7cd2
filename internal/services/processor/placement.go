package processor

import "image"

// Placement is where a scaled watermark lands on the input canvas.
type Placement struct {
	Offset image.Point
	Size   image.Point
}

// Rect is the watermark rectangle in canvas coordinates. It may extend past
// the canvas when the watermark is larger than the input on an axis.
func (p Placement) Rect() image.Rectangle {
	return image.Rectangle{Min: p.Offset, Max: p.Offset.Add(p.Size)}
}

// ChoosePlacement picks a uniform top-left offset with
// 0 <= x <= canvas.X-watermark.X (inclusive) and likewise for y. An axis on
// which the watermark does not fit gets offset 0.
func ChoosePlacement(r Rand, canvas, watermark image.Point) Placement {
	if r == nil {
		r = globalRand{}
	}

	return Placement{
		Offset: image.Pt(
			r.IntN(max(0, canvas.X-watermark.X)+1),
			r.IntN(max(0, canvas.Y-watermark.Y)+1),
		),
		Size: watermark,
	}
}
