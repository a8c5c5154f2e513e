package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
	"object-detect/internal/infrastructure/storage"
	"object-detect/internal/infrastructure/vision"
)

// markerDetector находит "объект" на кадрах, у которых левый верхний пиксель красный.
type markerDetector struct {
	failOn map[color.RGBA]bool
	extra  []entity.Detection
}

var (
	red   = color.RGBA{R: 255, A: 255}
	gray  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	black = color.RGBA{A: 255}
)

func (d *markerDetector) Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	c := color.RGBAModel.Convert(frame.At(0, 0)).(color.RGBA)
	if d.failOn[c] {
		return nil, errors.New("inference failed")
	}
	dets := append([]entity.Detection(nil), d.extra...)
	if c == red {
		b := frame.Bounds()
		dets = append(dets, entity.Detection{
			Class:      "marker",
			Confidence: 0.93,
			BBox:       [4]float64{0, 0, float64(b.Dx()) / 2, float64(b.Dy()) / 2},
		})
	}
	return dets, nil
}

func (d *markerDetector) Close() error { return nil }

// memoryVideo видеокодек, отдающий заранее заданные кадры.
type memoryVideo struct {
	vision.ImageCodec

	frames  []image.Image
	info    port.VideoInfo
	openErr error

	mu      sync.Mutex
	written int
	created port.VideoInfo
}

func (m *memoryVideo) OpenVideo(path string) (port.VideoSource, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &memorySource{frames: m.frames, info: m.info}, nil
}

func (m *memoryVideo) CreateVideo(path string, info port.VideoInfo) (port.VideoSink, error) {
	m.created = info
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	return &memorySink{owner: m}, nil
}

type memorySource struct {
	frames []image.Image
	info   port.VideoInfo
	pos    int
}

func (s *memorySource) Info() port.VideoInfo { return s.info }

func (s *memorySource) Next() (image.Image, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *memorySource) Close() error { return nil }

type memorySink struct {
	owner *memoryVideo
}

func (s *memorySink) Write(frame image.Image) error {
	s.owner.mu.Lock()
	s.owner.written++
	s.owner.mu.Unlock()
	return nil
}

func (s *memorySink) Close() error { return nil }

type recordingNotifier struct {
	calls chan string
}

func (n *recordingNotifier) Notify(ctx context.Context, report *entity.Report, resultPath string) error {
	n.calls <- resultPath
	return nil
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fixture struct {
	svc      *DetectionService
	repo     *storage.MemoryJobRepository
	store    *storage.FileStore
	media    *memoryVideo
	detector *markerDetector
	logs     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	store := storage.NewFileStore(filepath.Join(root, "uploads"), filepath.Join(root, "results"))
	require.NoError(t, store.EnsureDirs())

	repo := storage.NewMemoryJobRepository()
	media := &memoryVideo{ImageCodec: vision.ImageCodec{Quality: 90}}
	detector := &markerDetector{failOn: map[color.RGBA]bool{}}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	svc := NewDetectionService(NewJobService(repo), store, media, detector, vision.NewAnnotator(), nil, logger)
	return &fixture{svc: svc, repo: repo, store: store, media: media, detector: detector, logs: hook}
}

func (f *fixture) uploads(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.store.UploadDir)
	require.NoError(t, err)
	return entries
}
