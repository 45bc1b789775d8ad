// internal/models/models.go
package models

import (
	"image"
	"time"
)

// ImageAsset is one stored gallery image. The JSON shape is what consumers of
// the listing endpoint depend on.
type ImageAsset struct {
	ID        string    `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	Tags      []string  `json:"tags" db:"tags"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// HasTag reports whether the asset carries tag exactly.
func (a ImageAsset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Pan is the offset of the crop frame center from the image center, as a
// fraction of the source width and height. Zero is centered.
type Pan struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Aspect is a width:height ratio.
type Aspect struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (a Aspect) Ratio() float64 {
	if a.Height <= 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

// CropSelection is the live pan/zoom state of one crop session.
type CropSelection struct {
	Pan    Pan     `json:"pan"`
	Zoom   float64 `json:"zoom"`
	Aspect Aspect  `json:"aspect"`
}

// Rect is a pixel rectangle in source image coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Inquiry is a visitor message handed to the contact relay.
type Inquiry struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}
