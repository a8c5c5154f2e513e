package vision

import (
	"image"
	"image/color"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
)

// labelOffset расстояние от верхней границы рамки до базовой линии подписи.
const labelOffset = 10

// Annotator отбирает детекции по порогу и рисует их на копии кадра.
// Отрисовка зависит от сборки: OpenCV с тегом gocv, иначе image/draw.
type Annotator struct {
	Threshold float64
	Color     color.RGBA
	Thickness int
}

// NewAnnotator создаёт аннотатор с фиксированным порогом ответа и зелёными рамками.
func NewAnnotator() *Annotator {
	return &Annotator{
		Threshold: entity.ConfidenceThreshold,
		Color:     color.RGBA{G: 255, A: 255},
		Thickness: 2,
	}
}

// Annotate не изменяет исходный кадр.
func (a *Annotator) Annotate(frame image.Image, detections []entity.Detection) ([]entity.Detection, image.Image, error) {
	kept := entity.FilterByConfidence(detections, a.Threshold)

	out, err := a.render(frame, kept)
	if err != nil {
		return nil, nil, err
	}
	return kept, out, nil
}

var _ port.FrameAnnotator = (*Annotator)(nil)
