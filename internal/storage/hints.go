package storage

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"gallery/internal/models"
)

// AutoQuality is used when the uploader leaves quality to the store.
const AutoQuality = 82

const storedContentType = "image/jpeg"

type normalized struct {
	data   []byte
	width  int
	height int
}

// normalize applies the transform hints to uploaded bytes: images larger than
// MaxDimension are scaled down to fit, and everything is stored as JPEG.
// Bytes that do not decode are rejected.
func normalize(data []byte, hints models.TransformHints) (normalized, error) {
	const op = "storage.normalize"

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return normalized{}, fmt.Errorf("%s: %w: %v", op, models.ErrStoreRejected, err)
	}

	if limit := hints.MaxDimension; limit > 0 {
		b := img.Bounds()
		if b.Dx() > limit || b.Dy() > limit {
			img = imaging.Fit(img, limit, limit, imaging.Lanczos)
		}
	}

	quality := hints.Quality
	if quality < 1 || quality > 100 {
		quality = AutoQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return normalized{}, fmt.Errorf("%s: %w: %v", op, models.ErrStoreRejected, err)
	}

	b := img.Bounds()
	return normalized{data: buf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}
