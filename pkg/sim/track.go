package sim

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

type Track struct {
	Points []r2.Point
}

func (t *Track) add(p r2.Point) {
	t.Points = append(t.Points, p)
}

// Bounds is the smallest axis-aligned box containing every point.
func (t Track) Bounds() r2.Rect {
	return r2.RectFromPoints(t.Points...)
}

// Length is the distance travelled along the track.
func (t Track) Length() float64 {
	var l float64
	for i := 1; i < len(t.Points); i++ {
		l += t.Points[i].Sub(t.Points[i-1]).Norm()
	}
	return l
}

const renderMargin = 20

// Render draws the track scaled to fit a size x size image, y up.
func (t Track) Render(size int) *gg.Context {
	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if len(t.Points) == 0 {
		return dc
	}

	b := t.Bounds()
	extent := math.Max(math.Max(b.X.Length(), b.Y.Length()), 1)
	scale := float64(size-2*renderMargin) / extent
	centre := b.Center()
	toPixel := func(p r2.Point) (float64, float64) {
		return float64(size)/2 + (p.X-centre.X)*scale, float64(size)/2 - (p.Y-centre.Y)*scale
	}

	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	ox, oy := toPixel(r2.Point{})
	dc.DrawLine(0, oy, float64(size), oy)
	dc.DrawLine(ox, 0, ox, float64(size))
	dc.Stroke()

	dc.SetRGB(0, 0.3, 0.9)
	dc.SetLineWidth(2)
	for i, p := range t.Points {
		x, y := toPixel(p)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	dc.SetRGB(0, 0.7, 0)
	x, y := toPixel(t.Points[0])
	dc.DrawCircle(x, y, 4)
	dc.Fill()
	dc.SetRGB(0.9, 0.1, 0)
	x, y = toPixel(t.Points[len(t.Points)-1])
	dc.DrawCircle(x, y, 4)
	dc.Fill()
	return dc
}

func (t Track) RenderPNG(path string, size int) error {
	if size <= 2*renderMargin {
		return errors.Errorf("image size %d too small", size)
	}
	return errors.Wrapf(t.Render(size).SavePNG(path), "writing %s", path)
}
