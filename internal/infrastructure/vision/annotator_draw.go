//go:build !gocv
// +build !gocv

package vision

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"object-detect/internal/domain/entity"
)

// render рисует на копии кадра без OpenCV.
func (a *Annotator) render(frame image.Image, detections []entity.Detection) (image.Image, error) {
	// imaging.Clone переносит кадр в начало координат.
	offset := frame.Bounds().Min
	out := imaging.Clone(frame)
	for _, d := range detections {
		rect := d.Rect().Sub(offset)
		drawRect(out, rect, a.Color, a.Thickness)
		drawLabel(out, rect.Min, d.Label(), a.Color)
	}
	return out, nil
}

func drawRect(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst draw.Image, at image.Point, text string, c color.Color) {
	face := basicfont.Face7x13
	y := at.Y - labelOffset
	if y < face.Ascent {
		// Над рамкой не помещается, пишем внутри.
		y = at.Y + face.Ascent + 2
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X, y),
	}
	d.DrawString(text)
}
