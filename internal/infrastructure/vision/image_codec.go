package vision

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageCodec читает изображения любых поддерживаемых форматов и пишет JPEG.
type ImageCodec struct {
	Quality int
}

// DecodeImage загружает файл целиком в один кадр.
func (c ImageCodec) DecodeImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	return img, nil
}

// EncodeImage формат определяется расширением пути.
func (c ImageCodec) EncodeImage(path string, img image.Image) error {
	quality := c.Quality
	if quality <= 0 {
		quality = 90
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}
