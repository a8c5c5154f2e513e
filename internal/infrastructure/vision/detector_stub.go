//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"object-detect/internal/domain/entity"
)

type GoCVDetector struct{}

// NewGoCVDetector возвращает ошибку, если сборка без тега gocv.
func NewGoCVDetector(modelPath string, labels []string) (*GoCVDetector, error) {
	_ = modelPath
	_ = labels
	return nil, errors.New("gocv build tag is not enabled")
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	_ = ctx
	_ = frame
	return nil, errors.New("gocv build tag is not enabled")
}

func (d *GoCVDetector) Close() error { return nil }
