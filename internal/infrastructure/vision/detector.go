//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
	"object-detect/internal/infrastructure/yolo"
)

// GoCVDetector запускает YOLOv8 (ONNX) через модуль dnn OpenCV.
type GoCVDetector struct {
	mu     sync.Mutex
	net    gocv.Net
	labels []string
}

// NewGoCVDetector загружает модель; пустая сеть считается ошибкой запуска.
func NewGoCVDetector(modelPath string, labels []string) (*GoCVDetector, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load model %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &GoCVDetector{net: net, labels: labels}, nil
}

// Detect дополняет кадр до квадрата, чтобы сохранить пропорции объектов.
func (d *GoCVDetector) Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	width, height := mat.Cols(), mat.Rows()
	side := max(width, height)

	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), side, side, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, width, height))
	mat.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(yolo.InputSize, yolo.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	sizes := out.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scale := float64(side) / yolo.InputSize
	return yolo.Decode(data, d.labels, sizes[2], yolo.Transform{
		ScaleX: scale,
		ScaleY: scale,
		Bounds: image.Rect(0, 0, width, height),
	})
}

func (d *GoCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

var _ port.ObjectDetector = (*GoCVDetector)(nil)
