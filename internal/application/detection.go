package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
)

const (
	// MaxUploadBytes предел размера загрузки.
	MaxUploadBytes = 16 << 20
	// DefaultFPS используется, если контейнер не сообщает частоту кадров.
	DefaultFPS = 30.0

	notifyTimeout = 30 * time.Second
)

var allowedExtensions = map[string]entity.MediaKind{
	"png":  entity.MediaImage,
	"jpg":  entity.MediaImage,
	"jpeg": entity.MediaImage,
	"mp4":  entity.MediaVideo,
	"avi":  entity.MediaVideo,
	"mov":  entity.MediaVideo,
}

// Upload загруженный клиентом файл.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// DetectionService ведёт загрузку через сохранение, детекцию, запись результата и очистку.
type DetectionService struct {
	jobs      *JobService
	files     port.ArtifactStore
	media     port.MediaCodec
	detector  port.ObjectDetector
	annotator port.FrameAnnotator
	notifier  port.ResultNotifier
	log       logrus.FieldLogger
}

// NewDetectionService создаёт сервис детекции. notifier может быть nil.
func NewDetectionService(
	jobs *JobService,
	files port.ArtifactStore,
	media port.MediaCodec,
	detector port.ObjectDetector,
	annotator port.FrameAnnotator,
	notifier port.ResultNotifier,
	log logrus.FieldLogger,
) *DetectionService {
	return &DetectionService{
		jobs:      jobs,
		files:     files,
		media:     media,
		detector:  detector,
		annotator: annotator,
		notifier:  notifier,
		log:       log,
	}
}

// ModelLoaded сообщает, инициализирован ли детектор.
func (s *DetectionService) ModelLoaded() bool {
	return s.detector != nil
}

// ResultPath путь артефакта по имени из ответа.
func (s *DetectionService) ResultPath(name string) (string, error) {
	path, err := s.files.ResultPath(name)
	if err != nil {
		return "", NotFoundError(MsgFileNotFound)
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", NotFoundError(MsgFileNotFound)
	}
	return path, nil
}

// ValidateFilename возвращает нормализованное расширение вида ".jpg".
func ValidateFilename(filename string) (string, error) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", ValidationError(MsgFileTypeNotAllowed)
	}
	ext := strings.ToLower(filename[idx+1:])
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ValidationError(MsgFileTypeNotAllowed)
	}
	return "." + ext, nil
}

// MediaKindOf определяет тип по MIME, а при его отсутствии по расширению.
func MediaKindOf(contentType, ext string) entity.MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return entity.MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return entity.MediaVideo
	default:
		return allowedExtensions[strings.TrimPrefix(ext, ".")]
	}
}

// Detect обрабатывает одну загрузку. Ошибки имеют тип *Error.
func (s *DetectionService) Detect(ctx context.Context, up Upload) (*entity.Report, error) {
	job := entity.NewJob(uuid.NewString(), up.Filename, up.ContentType)

	ext, err := ValidateFilename(up.Filename)
	if err != nil {
		return nil, err
	}
	job.Kind = MediaKindOf(up.ContentType, ext)
	job.SetState(entity.StateValidated)

	log := s.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"kind":     job.Kind,
		"filename": up.Filename,
	})
	s.record(ctx, job, log)

	report, err := s.run(ctx, job, ext, up.Body, log)
	if err != nil {
		log.WithError(err).Error("detection failed")
		if rmErr := s.files.Remove(job.UploadPath); rmErr != nil {
			log.WithError(rmErr).Warn("failed to remove upload")
		}
		job.Fail(err)
		s.record(context.WithoutCancel(ctx), job, log)
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"result":  report.ResultFile,
		"objects": report.TotalObjects(),
	}).Info("detection finished")

	s.notify(ctx, report, log)
	return report, nil
}

func (s *DetectionService) run(ctx context.Context, job *entity.Job, ext string, body io.Reader, log logrus.FieldLogger) (*entity.Report, error) {
	if s.detector == nil {
		return nil, ProcessingError("Model is not loaded", nil)
	}

	path, err := s.files.UploadPath(job.ID, ext)
	if err != nil {
		return nil, ProcessingError("Error preparing upload", err)
	}
	if err := saveUpload(path, body); err != nil {
		// Частично записанный файл тоже нужно удалить.
		job.UploadPath = path
		return nil, ProcessingError("Error saving upload", err)
	}
	job.UploadPath = path
	job.SetState(entity.StateSaved)
	s.record(ctx, job, log)

	var report *entity.Report
	switch job.Kind {
	case entity.MediaImage:
		report, err = s.processImage(ctx, job)
	case entity.MediaVideo:
		report, err = s.processVideo(ctx, job, log)
	default:
		err = ProcessingError(fmt.Sprintf("Unsupported media kind %q", job.Kind), nil)
	}
	if err != nil {
		return nil, err
	}

	job.ResultFile = report.ResultFile
	job.SetState(entity.StateProcessed)
	s.record(ctx, job, log)

	if err := s.files.Remove(job.UploadPath); err != nil {
		log.WithError(err).Warn("failed to remove upload")
	}
	s.advance(ctx, job, entity.StateResponded, log)

	return report, nil
}

func (s *DetectionService) processImage(ctx context.Context, job *entity.Job) (*entity.Report, error) {
	img, err := s.media.DecodeImage(job.UploadPath)
	if err != nil {
		return nil, ProcessingError("Error reading image", err)
	}

	detections, annotated, err := s.annotateFrame(ctx, img)
	if err != nil {
		return nil, ProcessingError("Error processing image", err)
	}

	name := resultName(job.ID, ".jpg")
	out, err := s.files.NewResultPath(name)
	if err != nil {
		return nil, ProcessingError("Error preparing result", err)
	}
	if err := s.media.EncodeImage(out, annotated); err != nil {
		return nil, ProcessingError("Error writing annotated image", err)
	}

	return &entity.Report{
		Kind:       entity.MediaImage,
		ResultFile: name,
		Image: &entity.ImageReport{
			JobID:          job.ID,
			Detections:     detections,
			AnnotatedImage: name,
			Statistics:     entity.NewStatistics(detections),
		},
	}, nil
}

// processVideo обрабатывает кадры строго по порядку. Кадр с ошибкой пропускается
// и не попадает в выходное видео; число таких кадров возвращается в skipped_frames.
func (s *DetectionService) processVideo(ctx context.Context, job *entity.Job, log logrus.FieldLogger) (report *entity.Report, err error) {
	src, err := s.media.OpenVideo(job.UploadPath)
	if err != nil {
		return nil, ProcessingError("Error opening video file", err)
	}
	defer src.Close()

	info := src.Info()
	if info.Width <= 0 || info.Height <= 0 {
		return nil, ProcessingError("Error opening video file",
			fmt.Errorf("invalid frame size %dx%d", info.Width, info.Height))
	}
	if info.FPS <= 0 {
		info.FPS = DefaultFPS
	}

	name := resultName(job.ID, ".mp4")
	out, err := s.files.NewResultPath(name)
	if err != nil {
		return nil, ProcessingError("Error preparing result", err)
	}
	sink, err := s.media.CreateVideo(out, info)
	if err != nil {
		return nil, ProcessingError("Error creating output video", err)
	}
	finalized := false
	defer func() {
		if err != nil {
			if !finalized {
				sink.Close()
			}
			if rmErr := s.files.Remove(out); rmErr != nil {
				log.WithError(rmErr).Warn("failed to remove partial video")
			}
		}
	}()

	analysis := entity.VideoAnalysis{
		OutputVideo: name,
		Detections:  make([]entity.FrameDetections, 0),
	}

	for input := 0; ; input++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ProcessingError("Video processing cancelled", ctxErr)
		}

		frame, readErr := src.Next()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			analysis.SkippedFrames++
			log.WithError(readErr).WithField("input_frame", input).Warn("skipping unreadable frame")
			continue
		}

		detections, annotated, frameErr := s.annotateFrame(ctx, frame)
		if frameErr != nil {
			analysis.SkippedFrames++
			log.WithError(frameErr).WithField("input_frame", input).Warn("skipping frame")
			continue
		}

		if writeErr := sink.Write(annotated); writeErr != nil {
			return nil, ProcessingError("Error writing video frame", writeErr)
		}

		if len(detections) > 0 {
			analysis.Detections = append(analysis.Detections, entity.FrameDetections{
				Frame:      analysis.TotalFrames,
				Detections: detections,
			})
		}
		analysis.TotalFrames++
	}

	finalized = true
	if closeErr := sink.Close(); closeErr != nil {
		err = ProcessingError("Error finalizing video", closeErr)
		return nil, err
	}
	analysis.FramesWithDetections = len(analysis.Detections)

	return &entity.Report{
		Kind:       entity.MediaVideo,
		ResultFile: name,
		Video: &entity.VideoReport{
			JobID:         job.ID,
			VideoAnalysis: analysis,
		},
	}, nil
}

// annotateFrame запускает детектор и аннотатор; паника детектора превращается в ошибку.
func (s *DetectionService) annotateFrame(ctx context.Context, frame image.Image) (detections []entity.Detection, annotated image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()

	raw, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return nil, nil, err
	}

	return s.annotator.Annotate(frame, raw)
}

func (s *DetectionService) record(ctx context.Context, job *entity.Job, log logrus.FieldLogger) {
	if err := s.jobs.Save(ctx, job); err != nil {
		log.WithError(err).WithField("state", job.State).Warn("failed to record job state")
	}
}

// advance фиксирует переход, не затрагивающий остальные поля задачи.
func (s *DetectionService) advance(ctx context.Context, job *entity.Job, state entity.JobState, log logrus.FieldLogger) {
	job.SetState(state)
	if err := s.jobs.UpdateState(ctx, job.ID, state); err != nil {
		log.WithError(err).WithField("state", state).Warn("failed to record job state")
	}
}

func (s *DetectionService) notify(ctx context.Context, report *entity.Report, log logrus.FieldLogger) {
	if s.notifier == nil {
		return
	}
	path, err := s.files.ResultPath(report.ResultFile)
	if err != nil {
		log.WithError(err).Warn("skip notification")
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.Notify(nctx, report, path); err != nil {
			log.WithError(err).Warn("failed to send notification")
		}
	}()
}

func resultName(jobID, ext string) string {
	return "detected_" + jobID + ext
}

func saveUpload(path string, body io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
