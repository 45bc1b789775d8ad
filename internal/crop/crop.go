// Package crop turns an interactive pan/zoom selection into the exact source
// rectangle to cut out of an image.
package crop

import (
	"fmt"
	"math"

	"gallery/internal/models"
)

const (
	MinZoom = 1.0
	MaxZoom = 3.0
)

// NormalizeZoom validates z. Zoom below MinZoom would need upscaling and is
// rejected; zoom above MaxZoom is clamped.
func NormalizeZoom(z float64) (float64, error) {
	if math.IsNaN(z) || z < MinZoom {
		return 0, fmt.Errorf("crop: %w: zoom %v below %v", models.ErrInvalidSelection, z, MinZoom)
	}
	return math.Min(z, MaxZoom), nil
}

// NewSelection returns a centered, unzoomed selection for aspect.
func NewSelection(aspect models.Aspect) models.CropSelection {
	return models.CropSelection{Zoom: MinZoom, Aspect: aspect}
}

// SourceRect computes the source-pixel rectangle visible through the crop
// frame.
//
// At zoom 1 the frame is the largest rectangle of the target aspect that fits
// the source. Zooming shrinks it by 1/zoom around its center. Pan moves the
// center away from the image center by a fraction of the source size, and the
// center is clamped so the frame stays on the image.
func SourceRect(sourceWidth, sourceHeight int, sel models.CropSelection) (models.Rect, error) {
	const op = "crop.SourceRect"

	if sourceWidth <= 0 || sourceHeight <= 0 {
		return models.Rect{}, fmt.Errorf("%s: %w: source is %dx%d", op, models.ErrInvalidSelection, sourceWidth, sourceHeight)
	}
	ratio := sel.Aspect.Ratio()
	if ratio <= 0 || math.IsInf(ratio, 0) {
		return models.Rect{}, fmt.Errorf("%s: %w: aspect %d:%d", op, models.ErrInvalidSelection, sel.Aspect.Width, sel.Aspect.Height)
	}
	zoom, err := NormalizeZoom(sel.Zoom)
	if err != nil {
		return models.Rect{}, fmt.Errorf("%s: %w", op, err)
	}

	srcW, srcH := float64(sourceWidth), float64(sourceHeight)

	baseW, baseH := srcW, srcW/ratio
	if baseH > srcH {
		baseW, baseH = srcH*ratio, srcH
	}

	width := min(int(math.Round(baseW/zoom)), sourceWidth)
	height := min(int(math.Round(baseH/zoom)), sourceHeight)
	if width <= 0 || height <= 0 {
		return models.Rect{}, fmt.Errorf("%s: %w: %dx%d frame has no area", op, models.ErrInvalidSelection, width, height)
	}

	cx := srcW/2 + panOffset(sel.Pan.X)*srcW
	cy := srcH/2 + panOffset(sel.Pan.Y)*srcH

	return models.Rect{
		X:      clamp(int(math.Round(cx-float64(width)/2)), 0, sourceWidth-width),
		Y:      clamp(int(math.Round(cy-float64(height)/2)), 0, sourceHeight-height),
		Width:  width,
		Height: height,
	}, nil
}

// FullFrame is the rectangle covering the whole source.
func FullFrame(sourceWidth, sourceHeight int) models.Rect {
	return models.Rect{Width: sourceWidth, Height: sourceHeight}
}

// panOffset bounds a pan component to half the source, which already puts
// the frame center past any edge.
func panOffset(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-0.5, math.Min(0.5, v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
