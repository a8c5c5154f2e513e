package port

import (
	"context"
	"image"

	"object-detect/internal/domain/entity"
)

// ObjectDetector интерфейс детектора объектов
type ObjectDetector interface {
	// Detect возвращает все детекции модели на кадре, без фильтра по порогу ответа
	Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error)

	// Close освобождает ресурсы модели
	Close() error
}

// FrameAnnotator рисует детекции поверх кадра
type FrameAnnotator interface {
	// Annotate оставляет детекции выше порога и возвращает их вместе с копией кадра
	Annotate(frame image.Image, detections []entity.Detection) ([]entity.Detection, image.Image, error)
}
