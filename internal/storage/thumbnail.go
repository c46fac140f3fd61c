package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ThumbnailMaxEdge bounds the longer side of a thumbnail in pixels.
const ThumbnailMaxEdge = 400

// MaxThumbnailPixels caps the decoded size of a source image. A small file
// can declare dimensions that would need gigabytes once decoded.
const MaxThumbnailPixels = 40_000_000

// ErrImageTooLarge is returned for images whose header declares more than
// MaxThumbnailPixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// Thumbnail decodes an image and returns a JPEG no larger than
// ThumbnailMaxEdge on either side. Images already within bounds are
// re-encoded at their own size.
func Thumbnail(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxThumbnailPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), ThumbnailMaxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 82}); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales (w, h) so the longer side is at most limit, keeping aspect.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
