package yolo

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"object-detect/internal/domain/entity"
)

// buildOutput собирает выход [4+C, N] из списка боксов (cx, cy, w, h, class, score).
func buildOutput(numClasses, numBoxes int, boxes [][6]float32) []float32 {
	out := make([]float32, (4+numClasses)*numBoxes)
	for i, b := range boxes {
		out[i] = b[0]
		out[numBoxes+i] = b[1]
		out[2*numBoxes+i] = b[2]
		out[3*numBoxes+i] = b[3]
		out[(4+int(b[4]))*numBoxes+i] = b[5]
	}
	return out
}

func TestDecode(t *testing.T) {
	labels := []string{"person", "car"}
	out := buildOutput(2, 4, [][6]float32{
		{100, 100, 40, 40, 0, 0.9},  // person
		{102, 101, 40, 40, 0, 0.7},  // дубликат, подавляется NMS
		{300, 300, 100, 50, 1, 0.8}, // car, выходит за правый край и обрезается
		{50, 50, 10, 10, 1, 0.1},    // ниже порога модели
	})

	dets, err := Decode(out, labels, 4, Transform{ScaleX: 1, ScaleY: 1, Bounds: image.Rect(0, 0, 320, 320)})
	require.NoError(t, err)
	require.Len(t, dets, 2)

	require.Equal(t, "person", dets[0].Class)
	require.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	require.Equal(t, [4]float64{80, 80, 120, 120}, dets[0].BBox)

	require.Equal(t, "car", dets[1].Class)
	require.Equal(t, [4]float64{250, 275, 320, 320}, dets[1].BBox)
}

func TestDecode_Scale(t *testing.T) {
	out := buildOutput(1, 1, [][6]float32{{320, 320, 64, 64, 0, 0.95}})

	dets, err := Decode(out, []string{"dog"}, 1, Transform{ScaleX: 0.5, ScaleY: 0.25, Bounds: image.Rect(0, 0, 320, 160)})
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, [4]float64{144, 72, 176, 88}, dets[0].BBox)
}

func TestDecode_DropsBoxesOutsideFrame(t *testing.T) {
	out := buildOutput(1, 1, [][6]float32{{700, 700, 20, 20, 0, 0.95}})

	dets, err := Decode(out, []string{"dog"}, 1, Transform{ScaleX: 1, ScaleY: 1, Bounds: image.Rect(0, 0, 640, 640)})
	require.NoError(t, err)
	require.Empty(t, dets)
}

func TestDecode_BadLength(t *testing.T) {
	_, err := Decode(make([]float32, 10), []string{"a"}, 4, Transform{})
	require.Error(t, err)
}

func TestNMS_KeepsDifferentClasses(t *testing.T) {
	box := [4]float64{0, 0, 10, 10}
	dets := NMS([]entity.Detection{
		{Class: "cat", Confidence: 0.7, BBox: box},
		{Class: "dog", Confidence: 0.8, BBox: box},
		{Class: "cat", Confidence: 0.9, BBox: box},
	}, IoUThreshold)

	require.Len(t, dets, 2)
	require.Equal(t, "cat", dets[0].Class)
	require.InDelta(t, 0.9, dets[0].Confidence, 1e-9)
	require.Equal(t, "dog", dets[1].Class)
}

func TestIoU(t *testing.T) {
	require.InDelta(t, 1.0, IoU([4]float64{0, 0, 10, 10}, [4]float64{0, 0, 10, 10}), 1e-9)
	require.InDelta(t, 0.0, IoU([4]float64{0, 0, 10, 10}, [4]float64{20, 20, 30, 30}), 1e-9)
	require.InDelta(t, 25.0/175.0, IoU([4]float64{0, 0, 10, 10}, [4]float64{5, 5, 15, 15}), 1e-9)
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels("")
	require.NoError(t, err)
	require.Len(t, labels, 80)

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("helmet\n\n vest \n"), 0o644))
	labels, err = LoadLabels(path)
	require.NoError(t, err)
	require.Equal(t, []string{"helmet", "vest"}, labels)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadLabels(empty)
	require.Error(t, err)
}
