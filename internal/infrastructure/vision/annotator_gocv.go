//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"object-detect/internal/domain/entity"
)

const labelFontScale = 0.9

// render переводит кадр в Mat один раз и рисует все рамки и подписи средствами OpenCV.
func (a *Annotator) render(frame image.Image, detections []entity.Detection) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	offset := frame.Bounds().Min
	for _, d := range detections {
		rect := d.Rect().Sub(offset)
		gocv.Rectangle(&mat, rect, a.Color, a.Thickness)
		gocv.PutText(&mat, d.Label(), image.Pt(rect.Min.X, rect.Min.Y-labelOffset),
			gocv.FontHersheySimplex, labelFontScale, a.Color, a.Thickness)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert annotated frame: %w", err)
	}
	return img, nil
}
