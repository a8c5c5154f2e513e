package port

import (
	"errors"
	"image"
)

// ErrVideoUnsupported сборка не поддерживает работу с видео.
var ErrVideoUnsupported = errors.New("video support requires the gocv build tag")

// VideoInfo параметры видеопотока
type VideoInfo struct {
	FPS    float64
	Width  int
	Height int
}

// VideoSource последовательность кадров видео. Next возвращает io.EOF по окончании.
type VideoSource interface {
	Info() VideoInfo
	Next() (image.Image, error)
	Close() error
}

// VideoSink выходной видеопоток. Close финализирует файл.
type VideoSink interface {
	Write(frame image.Image) error
	Close() error
}

// MediaCodec чтение и запись изображений и видео
type MediaCodec interface {
	DecodeImage(path string) (image.Image, error)
	EncodeImage(path string, img image.Image) error
	OpenVideo(path string) (VideoSource, error)
	CreateVideo(path string, info VideoInfo) (VideoSink, error)
}
