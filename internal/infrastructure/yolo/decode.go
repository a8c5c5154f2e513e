package yolo

import (
	"fmt"
	"image"
	"math"
	"sort"

	"object-detect/internal/domain/entity"
)

const (
	// InputSize сторона входного тензора YOLOv8.
	InputSize = 640
	// MinConfidence порог модели; порог ответа применяется позже.
	MinConfidence = 0.25
	// IoUThreshold порог подавления пересекающихся рамок.
	IoUThreshold = 0.45
)

// Transform переводит координаты входа сети в координаты кадра.
type Transform struct {
	ScaleX, ScaleY float64
	Bounds         image.Rectangle
}

// Decode разбирает выход [1, 4+C, N] в детекции кадра, применяя NMS по классам.
func Decode(output []float32, labels []string, numBoxes int, tr Transform) ([]entity.Detection, error) {
	numClasses := len(labels)
	if numBoxes <= 0 || len(output) != (4+numClasses)*numBoxes {
		return nil, fmt.Errorf("unexpected output length: got %d, want %d", len(output), (4+numClasses)*numBoxes)
	}

	candidates := make([]entity.Detection, 0, 64)
	for i := 0; i < numBoxes; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := output[(4+c)*numBoxes+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || float64(bestScore) < MinConfidence {
			continue
		}

		cx := float64(output[i])
		cy := float64(output[numBoxes+i])
		w := float64(output[2*numBoxes+i])
		h := float64(output[3*numBoxes+i])

		det := entity.Detection{
			Class:      labels[best],
			Confidence: float64(bestScore),
			BBox: clip([4]float64{
				(cx - w/2) * tr.ScaleX,
				(cy - h/2) * tr.ScaleY,
				(cx + w/2) * tr.ScaleX,
				(cy + h/2) * tr.ScaleY,
			}, tr.Bounds),
		}
		if !det.Valid(tr.Bounds) {
			continue
		}
		candidates = append(candidates, det)
	}

	return NMS(candidates, IoUThreshold), nil
}

// NMS оставляет наиболее уверенную рамку среди пересекающихся рамок одного класса.
func NMS(detections []entity.Detection, iouThreshold float64) []entity.Detection {
	sorted := make([]entity.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]entity.Detection, 0, len(sorted))
	for _, cand := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Class == cand.Class && IoU(k.BBox, cand.BBox) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

// IoU отношение площади пересечения к площади объединения.
func IoU(a, b [4]float64) float64 {
	ix1 := math.Max(a[0], b[0])
	iy1 := math.Max(a[1], b[1])
	ix2 := math.Min(a[2], b[2])
	iy2 := math.Min(a[3], b[3])

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clip(box [4]float64, bounds image.Rectangle) [4]float64 {
	minX, minY := float64(bounds.Min.X), float64(bounds.Min.Y)
	maxX, maxY := float64(bounds.Max.X), float64(bounds.Max.Y)
	return [4]float64{
		math.Min(math.Max(box[0], minX), maxX),
		math.Min(math.Max(box[1], minY), maxY),
		math.Min(math.Max(box[2], minX), maxX),
		math.Min(math.Max(box[3], minY), maxY),
	}
}
