package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
	"object-detect/internal/infrastructure/storage"
)

func pngUpload(t *testing.T, img image.Image, name string) Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Upload{Filename: name, ContentType: "image/png", Body: &buf}
}

func videoUpload(name string) Upload {
	return Upload{Filename: name, ContentType: "video/mp4", Body: strings.NewReader("fake video bytes")}
}

func TestValidateFilename(t *testing.T) {
	for name, want := range map[string]string{
		"cat.png":         ".png",
		"CAT.JPG":         ".jpg",
		"archive.tar.mov": ".mov",
		"clip.Avi":        ".avi",
	} {
		ext, err := ValidateFilename(name)
		require.NoError(t, err, name)
		require.Equal(t, want, ext, name)
	}

	for _, name := range []string{"noext", "doc.pdf", "image.png.exe", "png", "video.mp4 "} {
		_, err := ValidateFilename(name)
		require.Error(t, err, name)
		require.Equal(t, KindValidation, KindOf(err), name)
	}
}

func TestMediaKindOf(t *testing.T) {
	require.Equal(t, entity.MediaImage, MediaKindOf("image/png", ".mov"))
	require.Equal(t, entity.MediaVideo, MediaKindOf("video/quicktime", ".png"))
	require.Equal(t, entity.MediaVideo, MediaKindOf("application/octet-stream", ".avi"))
	require.Equal(t, entity.MediaImage, MediaKindOf("", ".jpeg"))
}

func TestDetect_SolidImageHasNoDetections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.Detect(ctx, pngUpload(t, solid(10, 10, gray), "plain.png"))
	require.NoError(t, err)
	require.Equal(t, entity.MediaImage, report.Kind)
	require.NotNil(t, report.Image.Detections)
	require.Empty(t, report.Image.Detections)
	require.Equal(t, 0, report.Image.Statistics.TotalObjects)
	require.Empty(t, report.Image.Statistics.ClassesFound)

	// Загрузка удалена, результат доступен.
	require.Empty(t, f.uploads(t))
	path, err := f.svc.ResultPath(report.Image.AnnotatedImage)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	job, err := f.repo.Get(ctx, report.Image.JobID)
	require.NoError(t, err)
	require.Equal(t, entity.StateResponded, job.State)
	require.Equal(t, report.ResultFile, job.ResultFile)
}

func TestDetect_ImageThresholdAndBounds(t *testing.T) {
	f := newFixture(t)
	f.detector.extra = []entity.Detection{
		{Class: "car", Confidence: 0.61, BBox: [4]float64{1, 1, 8, 8}},
		{Class: "car", Confidence: 0.59, BBox: [4]float64{2, 2, 9, 9}},
		{Class: "dog", Confidence: 0.3, BBox: [4]float64{2, 2, 9, 9}},
	}

	frame := solid(40, 20, red)
	report, err := f.svc.Detect(context.Background(), pngUpload(t, frame, "shot.PNG"))
	require.NoError(t, err)

	dets := report.Image.Detections
	require.Len(t, dets, 2)
	for _, d := range dets {
		require.GreaterOrEqual(t, d.Confidence, entity.ConfidenceThreshold)
		require.True(t, d.Valid(frame.Bounds()), d)
	}
	require.Equal(t, 2, report.Image.Statistics.TotalObjects)
	require.ElementsMatch(t, []string{"car", "marker"}, report.Image.Statistics.ClassesFound)
	require.True(t, strings.HasPrefix(report.Image.AnnotatedImage, "detected_"))
	require.True(t, strings.HasSuffix(report.Image.AnnotatedImage, ".jpg"))
}

func TestDetect_DisallowedExtensionWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Detect(ctx, Upload{Filename: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hi")})
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
	require.Equal(t, MsgFileTypeNotAllowed, err.Error())

	require.Empty(t, f.uploads(t))
	jobs, err := f.repo.List(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestDetect_BrokenImageCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Detect(ctx, Upload{Filename: "broken.jpg", ContentType: "image/jpeg", Body: strings.NewReader("garbage")})
	require.Error(t, err)
	require.Equal(t, KindProcessing, KindOf(err))
	require.Contains(t, err.Error(), "Error reading image")

	require.Empty(t, f.uploads(t))
	jobs, err := f.repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, entity.StateErrored, jobs[0].State)
	require.NotEmpty(t, jobs[0].Error)
}

func TestDetect_DetectorFailureOnImageIsError(t *testing.T) {
	f := newFixture(t)
	f.detector.failOn[gray] = true

	_, err := f.svc.Detect(context.Background(), pngUpload(t, solid(10, 10, gray), "plain.png"))
	require.Error(t, err)
	require.Equal(t, KindProcessing, KindOf(err))
	require.Contains(t, err.Error(), "Error processing image")
	require.Empty(t, f.uploads(t))
}

func TestDetect_NoModel(t *testing.T) {
	f := newFixture(t)
	f.svc.detector = nil
	require.False(t, f.svc.ModelLoaded())

	_, err := f.svc.Detect(context.Background(), pngUpload(t, solid(4, 4, gray), "a.png"))
	require.Error(t, err)
	require.Equal(t, KindProcessing, KindOf(err))
	require.Empty(t, f.uploads(t))
}

func TestDetect_VideoOnlyMarkedFrameListed(t *testing.T) {
	f := newFixture(t)
	f.media.info = port.VideoInfo{FPS: 25, Width: 16, Height: 16}
	f.media.frames = []image.Image{solid(16, 16, gray), solid(16, 16, red), solid(16, 16, gray)}

	report, err := f.svc.Detect(context.Background(), videoUpload("clip.mp4"))
	require.NoError(t, err)
	require.Equal(t, entity.MediaVideo, report.Kind)

	va := report.Video.VideoAnalysis
	require.Equal(t, 3, va.TotalFrames)
	require.Equal(t, 1, va.FramesWithDetections)
	require.Equal(t, 0, va.SkippedFrames)
	require.Len(t, va.Detections, 1)
	require.Equal(t, 1, va.Detections[0].Frame)
	require.Equal(t, "marker", va.Detections[0].Detections[0].Class)
	require.True(t, strings.HasSuffix(va.OutputVideo, ".mp4"))

	require.Equal(t, 3, f.media.written)
	require.Equal(t, 25.0, f.media.created.FPS)
	require.Empty(t, f.uploads(t))
}

func TestDetect_VideoSkipsFailedFrames(t *testing.T) {
	f := newFixture(t)
	f.detector.failOn[black] = true
	f.media.info = port.VideoInfo{Width: 8, Height: 8}
	f.media.frames = []image.Image{
		solid(8, 8, red), solid(8, 8, black), solid(8, 8, gray), solid(8, 8, red),
	}

	report, err := f.svc.Detect(context.Background(), videoUpload("clip.mov"))
	require.NoError(t, err)

	va := report.Video.VideoAnalysis
	require.Equal(t, 3, va.TotalFrames)
	require.Equal(t, 1, va.SkippedFrames)
	require.Equal(t, 2, va.FramesWithDetections)
	require.LessOrEqual(t, va.FramesWithDetections, va.TotalFrames)

	seen := map[int]bool{}
	for _, fd := range va.Detections {
		require.False(t, seen[fd.Frame])
		seen[fd.Frame] = true
		require.GreaterOrEqual(t, fd.Frame, 0)
		require.Less(t, fd.Frame, va.TotalFrames)
	}
	require.Equal(t, map[int]bool{0: true, 2: true}, seen)

	require.Equal(t, 3, f.media.written)
	require.Equal(t, DefaultFPS, f.media.created.FPS)
}

func TestDetect_VideoOpenFailure(t *testing.T) {
	f := newFixture(t)
	f.media.openErr = port.ErrVideoUnsupported

	_, err := f.svc.Detect(context.Background(), videoUpload("clip.avi"))
	require.Error(t, err)
	require.Equal(t, KindProcessing, KindOf(err))
	require.True(t, errors.Is(err, port.ErrVideoUnsupported))
	require.Contains(t, err.Error(), "Error opening video file")
	require.Empty(t, f.uploads(t))
}

func TestDetect_VideoCancelled(t *testing.T) {
	f := newFixture(t)
	f.media.info = port.VideoInfo{FPS: 30, Width: 8, Height: 8}
	f.media.frames = []image.Image{solid(8, 8, gray)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Detect(ctx, videoUpload("clip.mp4"))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))

	entries, err := os.ReadDir(f.store.ResultsDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDetect_ContentTypeFallsBackToExtension(t *testing.T) {
	f := newFixture(t)
	up := pngUpload(t, solid(6, 6, gray), "photo.png")
	up.ContentType = "application/octet-stream"

	report, err := f.svc.Detect(context.Background(), up)
	require.NoError(t, err)
	require.Equal(t, entity.MediaImage, report.Kind)
}

func TestDetect_Notifies(t *testing.T) {
	f := newFixture(t)
	n := &recordingNotifier{calls: make(chan string, 1)}
	f.svc.notifier = n

	report, err := f.svc.Detect(context.Background(), pngUpload(t, solid(6, 6, red), "photo.png"))
	require.NoError(t, err)

	select {
	case path := <-n.calls:
		require.True(t, strings.HasSuffix(path, report.ResultFile))
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestDetect_UniqueResultNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		report, err := f.svc.Detect(ctx, pngUpload(t, solid(4, 4, gray), "same.png"))
		require.NoError(t, err)
		require.False(t, seen[report.ResultFile])
		seen[report.ResultFile] = true
	}
}

func TestResultPath_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ResultPath("detected_missing.jpg")
	require.Equal(t, KindNotFound, KindOf(err))

	_, err = f.svc.ResultPath("../uploads")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestDetect_JobRepositoryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.svc.jobs = NewJobService(failingRepo{storage.NewMemoryJobRepository()})

	report, err := f.svc.Detect(context.Background(), pngUpload(t, solid(4, 4, gray), "a.png"))
	require.NoError(t, err)
	require.NotNil(t, report)
	require.NotEmpty(t, f.logs.AllEntries())
}

type failingRepo struct{ *storage.MemoryJobRepository }

func (failingRepo) Save(ctx context.Context, job *entity.Job) error {
	return errors.New("store is down")
}

// transitionRepo запоминает переходы, записанные без полного сохранения задачи.
type transitionRepo struct {
	*storage.MemoryJobRepository
	states []entity.JobState
}

func (r *transitionRepo) UpdateState(ctx context.Context, id string, state entity.JobState) error {
	r.states = append(r.states, state)
	return r.MemoryJobRepository.UpdateState(ctx, id, state)
}

func TestDetect_RespondedRecordedAsStateTransition(t *testing.T) {
	f := newFixture(t)
	repo := &transitionRepo{MemoryJobRepository: storage.NewMemoryJobRepository()}
	f.svc.jobs = NewJobService(repo)
	ctx := context.Background()

	report, err := f.svc.Detect(ctx, pngUpload(t, solid(6, 6, red), "a.png"))
	require.NoError(t, err)
	require.Equal(t, []entity.JobState{entity.StateResponded}, repo.states)

	job, err := repo.Get(ctx, report.Image.JobID)
	require.NoError(t, err)
	require.Equal(t, entity.StateResponded, job.State)
	require.Equal(t, report.ResultFile, job.ResultFile)
}
