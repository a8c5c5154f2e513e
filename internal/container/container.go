package container

import (
	"github.com/sirupsen/logrus"

	app "object-detect/internal/application"
	"object-detect/internal/domain/port"
)

type Container struct {
	JobService       *app.JobService
	DetectionService *app.DetectionService
}

// Deps внешние зависимости сервисов. Notifier и Detector могут быть nil.
type Deps struct {
	Jobs      port.JobRepository
	Files     port.ArtifactStore
	Media     port.MediaCodec
	Detector  port.ObjectDetector
	Annotator port.FrameAnnotator
	Notifier  port.ResultNotifier
	Logger    logrus.FieldLogger
}

func New(d Deps) *Container {
	jobService := app.NewJobService(d.Jobs)
	detectionService := app.NewDetectionService(
		jobService, d.Files, d.Media, d.Detector, d.Annotator, d.Notifier, d.Logger,
	)

	return &Container{
		JobService:       jobService,
		DetectionService: detectionService,
	}
}
