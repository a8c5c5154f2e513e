//go:build !gocv
// +build !gocv

package vision

import "object-detect/internal/domain/port"

// VideoCodec заглушка для сборки без OpenCV: изображения работают, видео нет.
type VideoCodec struct {
	FourCC string
}

func NewVideoCodec(fourcc string) VideoCodec {
	return VideoCodec{FourCC: fourcc}
}

// OpenVideo возвращает ошибку, если сборка без тега gocv.
func (c VideoCodec) OpenVideo(path string) (port.VideoSource, error) {
	_ = path
	return nil, port.ErrVideoUnsupported
}

// CreateVideo возвращает ошибку, если сборка без тега gocv.
func (c VideoCodec) CreateVideo(path string, info port.VideoInfo) (port.VideoSink, error) {
	_ = path
	_ = info
	return nil, port.ErrVideoUnsupported
}
