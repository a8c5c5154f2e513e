package entity

import (
	"fmt"
	"image"
)

// ConfidenceThreshold минимальная уверенность детекции, попадающей в ответ.
const ConfidenceThreshold = 0.6

// Detection представляет найденный на кадре объект
type Detection struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2 в пикселях кадра
}

// Valid проверяет, что рамка невырождена и лежит внутри кадра.
func (d Detection) Valid(bounds image.Rectangle) bool {
	x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
	if x1 >= x2 || y1 >= y2 {
		return false
	}
	return x1 >= float64(bounds.Min.X) && y1 >= float64(bounds.Min.Y) &&
		x2 <= float64(bounds.Max.X) && y2 <= float64(bounds.Max.Y)
}

// Rect возвращает рамку в целых координатах для отрисовки.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(int(d.BBox[0]), int(d.BBox[1]), int(d.BBox[2]), int(d.BBox[3]))
}

// Label подпись вида "<class> <confidence>".
func (d Detection) Label() string {
	return fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
}

// FilterByConfidence оставляет детекции с уверенностью не ниже порога.
func FilterByConfidence(detections []Detection, threshold float64) []Detection {
	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= threshold {
			kept = append(kept, d)
		}
	}
	return kept
}
