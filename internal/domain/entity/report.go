package entity

// MediaKind тип загруженного файла
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Statistics сводка по изображению.
type Statistics struct {
	TotalObjects int      `json:"total_objects"`
	ClassesFound []string `json:"classes_found"`
}

// ImageReport ответ для изображения.
type ImageReport struct {
	JobID          string      `json:"job_id"`
	Detections     []Detection `json:"detections"`
	AnnotatedImage string      `json:"annotated_image"`
	Statistics     Statistics  `json:"statistics"`
}

// FrameDetections детекции одного кадра выходного видео.
type FrameDetections struct {
	Frame      int         `json:"frame"`
	Detections []Detection `json:"detections"`
}

// VideoAnalysis итог обработки видео.
type VideoAnalysis struct {
	OutputVideo          string            `json:"output_video"`
	TotalFrames          int               `json:"total_frames"`
	FramesWithDetections int               `json:"frames_with_detections"`
	SkippedFrames        int               `json:"skipped_frames"`
	Detections           []FrameDetections `json:"detections"`
}

// VideoReport ответ для видео.
type VideoReport struct {
	JobID         string        `json:"job_id"`
	VideoAnalysis VideoAnalysis `json:"video_analysis"`
}

// Report результат задачи: заполнено ровно одно из полей Image/Video.
type Report struct {
	Kind       MediaKind
	ResultFile string
	Image      *ImageReport
	Video      *VideoReport
}

// Body возвращает тело JSON-ответа.
func (r *Report) Body() any {
	if r.Kind == MediaVideo {
		return r.Video
	}
	return r.Image
}

// TotalObjects число объектов во всём результате.
func (r *Report) TotalObjects() int {
	if r.Kind == MediaVideo {
		total := 0
		for _, f := range r.Video.VideoAnalysis.Detections {
			total += len(f.Detections)
		}
		return total
	}
	return r.Image.Statistics.TotalObjects
}

// NewStatistics считает количество объектов и уникальные классы в порядке появления.
func NewStatistics(detections []Detection) Statistics {
	seen := make(map[string]struct{}, len(detections))
	classes := make([]string, 0)
	for _, d := range detections {
		if _, ok := seen[d.Class]; ok {
			continue
		}
		seen[d.Class] = struct{}{}
		classes = append(classes, d.Class)
	}
	return Statistics{
		TotalObjects: len(detections),
		ClassesFound: classes,
	}
}
