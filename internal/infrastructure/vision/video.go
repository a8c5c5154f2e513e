//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"object-detect/internal/domain/port"
)

// VideoCodec чтение и запись видео через OpenCV.
type VideoCodec struct {
	FourCC string
}

func NewVideoCodec(fourcc string) VideoCodec {
	return VideoCodec{FourCC: fourcc}
}

// OpenVideo открывает видеофайл для последовательного чтения кадров.
func (c VideoCodec) OpenVideo(path string) (port.VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.New("error opening video file")
	}

	return &videoSource{
		capture: capture,
		frame:   gocv.NewMat(),
		info: port.VideoInfo{
			FPS:    capture.Get(gocv.VideoCaptureFPS),
			Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		},
	}, nil
}

// CreateVideo открывает выходной поток с параметрами входного.
func (c VideoCodec) CreateVideo(path string, info port.VideoInfo) (port.VideoSink, error) {
	writer, err := gocv.VideoWriterFile(path, c.FourCC, info.FPS, info.Width, info.Height, true)
	if err != nil {
		return nil, fmt.Errorf("create video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video writer for %s is not opened (codec %s)", path, c.FourCC)
	}

	return &videoSink{writer: writer, size: image.Pt(info.Width, info.Height)}, nil
}

type videoSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	info    port.VideoInfo
}

func (s *videoSource) Info() port.VideoInfo { return s.info }

func (s *videoSource) Next() (image.Image, error) {
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, io.EOF
	}

	img, err := s.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (s *videoSource) Close() error {
	s.frame.Close()
	return s.capture.Close()
}

type videoSink struct {
	writer *gocv.VideoWriter
	size   image.Point
}

func (s *videoSink) Write(frame image.Image) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	// Кадр другого размера писатель молча отбрасывает.
	if mat.Cols() != s.size.X || mat.Rows() != s.size.Y {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, s.size, 0, 0, gocv.InterpolationArea)
		return s.writer.Write(resized)
	}

	return s.writer.Write(mat)
}

func (s *videoSink) Close() error {
	return s.writer.Close()
}
