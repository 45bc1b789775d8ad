// Package raster decodes uploaded images and cuts crop rectangles out of
// them.
package raster

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"gallery/internal/models"
)

// DefaultQuality is the JPEG quality used for cropped output.
const DefaultQuality = 90

// Source is a decoded upload. Its dimensions are the ones the crop geometry
// works in, after EXIF orientation has been applied.
type Source struct {
	img image.Image
}

// DefaultMaxPixels caps width*height of an upload before its pixels are
// allocated.
const DefaultMaxPixels = 50_000_000

// Decode reads JPEG, PNG, GIF, BMP, TIFF or WebP data no larger than
// DefaultMaxPixels.
func Decode(data []byte) (*Source, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit is Decode with a caller-chosen pixel ceiling, checked against
// the header before the image is decoded. maxPixels <= 0 means
// DefaultMaxPixels.
func DecodeLimit(data []byte, maxPixels int) (*Source, error) {
	const op = "raster.Decode"

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w: empty input", op, models.ErrRasterizationFailed)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrRasterizationFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return nil, fmt.Errorf("%s: %w: %dx%d exceeds %d pixels", op, models.ErrRasterizationFailed, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrRasterizationFailed, err)
	}
	return NewSource(img), nil
}

func NewSource(img image.Image) *Source {
	return &Source{img: img}
}

func (s *Source) Width() int  { return s.img.Bounds().Dx() }
func (s *Source) Height() int { return s.img.Bounds().Dy() }

type Rasterizer struct {
	quality int
}

// New returns a Rasterizer encoding at quality, or DefaultQuality when
// quality is outside 1..100.
func New(quality int) *Rasterizer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Rasterizer{quality: quality}
}

// Extract copies rect out of src pixel for pixel and encodes it as JPEG.
func (r *Rasterizer) Extract(src *Source, rect models.Rect) ([]byte, error) {
	const op = "raster.Extract"

	if src == nil || src.img == nil {
		return nil, fmt.Errorf("%s: %w: no source image", op, models.ErrRasterizationFailed)
	}
	bounds := image.Rect(0, 0, src.Width(), src.Height())
	area := rect.Image()
	if rect.Empty() || !area.In(bounds) {
		return nil, fmt.Errorf("%s: %w: %v outside %v", op, models.ErrInvalidSelection, area, bounds)
	}

	// imaging.Crop works in the image's own coordinate space.
	cropped := imaging.Crop(src.img, area.Add(src.img.Bounds().Min))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrEncodingFailed, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%s: %w: empty output", op, models.ErrEncodingFailed)
	}
	return buf.Bytes(), nil
}
