package vision

import "object-detect/internal/domain/port"

// MediaCodec объединяет кодек изображений и видеокодек текущей сборки.
type MediaCodec struct {
	ImageCodec
	VideoCodec
}

// NewMediaCodec fourcc задаёт кодек выходного видео, например "avc1".
func NewMediaCodec(fourcc string) *MediaCodec {
	return &MediaCodec{
		ImageCodec: ImageCodec{Quality: 90},
		VideoCodec: NewVideoCodec(fourcc),
	}
}

var _ port.MediaCodec = (*MediaCodec)(nil)
