package onnx

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
	"object-detect/internal/infrastructure/yolo"
)

// numBoxes число якорей YOLOv8 при входе 640x640.
const numBoxes = 8400

// Detector запускает YOLOv8 через ONNX Runtime. Сессия и тензоры общие, доступ под мьютексом.
type Detector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
}

// NewDetector инициализирует окружение ONNX Runtime и создаёт сессию.
func NewDetector(libraryPath, modelPath string, labels []string) (*Detector, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx environment: %w", err)
	}

	d, err := newDetector(modelPath, labels)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}
	return d, nil
}

func newDetector(modelPath string, labels []string) (*Detector, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())
	options.SetInterOpNumThreads(runtime.NumCPU())

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, yolo.InputSize, yolo.InputSize))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(labels)), numBoxes))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &Detector{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		labels:  labels,
	}, nil
}

// Detect масштабирует кадр до входа сети без сохранения пропорций.
func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := frame.Bounds()
	resized := imaging.Resize(frame, yolo.InputSize, yolo.InputSize, imaging.Linear)

	d.mu.Lock()
	defer d.mu.Unlock()

	FillInput(d.input.GetData(), resized)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	dets, err := yolo.Decode(d.output.GetData(), d.labels, numBoxes, yolo.Transform{
		ScaleX: float64(bounds.Dx()) / yolo.InputSize,
		ScaleY: float64(bounds.Dy()) / yolo.InputSize,
		Bounds: image.Rect(0, 0, bounds.Dx(), bounds.Dy()),
	})
	if err != nil {
		return nil, fmt.Errorf("process predictions: %w", err)
	}
	return dets, nil
}

// Close освобождает сессию, тензоры и окружение.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	if d.output != nil {
		d.output.Destroy()
	}
	return ort.DestroyEnvironment()
}

// FillInput раскладывает NRGBA-кадр в планарный тензор CHW со значениями 0..1.
func FillInput(dst []float32, img *image.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	channelSize := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			p := row[x*4:]
			dst[i] = float32(p[0]) / 255.0
			dst[channelSize+i] = float32(p[1]) / 255.0
			dst[2*channelSize+i] = float32(p[2]) / 255.0
		}
	}
}

var _ port.ObjectDetector = (*Detector)(nil)
