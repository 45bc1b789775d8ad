package bucket

import (
	"fmt"
	"strings"

	"gallery/internal/models"
)

// Aspects holds the crop aspect for each writable bucket kind.
type Aspects map[Kind]models.Aspect

// DefaultAspects matches the frames the site renders: square Hero banner,
// 3:4 portrait Portfolio cards.
func DefaultAspects() Aspects {
	return Aspects{
		Hero:      {Width: 1, Height: 1},
		Portfolio: {Width: 3, Height: 4},
	}
}

// AspectsFromConfig overlays configured aspects, keyed "hero" or "portfolio",
// on the defaults.
func AspectsFromConfig(overrides map[string]models.Aspect) (Aspects, error) {
	aspects := DefaultAspects()
	for name, a := range overrides {
		var kind Kind
		switch strings.ToLower(name) {
		case "hero":
			kind = Hero
		case "portfolio":
			kind = Portfolio
		default:
			return nil, fmt.Errorf("bucket: no aspect slot for %q", name)
		}
		if a.Width <= 0 || a.Height <= 0 {
			return nil, fmt.Errorf("bucket: invalid aspect %d:%d for %s", a.Width, a.Height, name)
		}
		aspects[kind] = a
	}
	return aspects, nil
}

// For returns the aspect bound to b.
func (a Aspects) For(b Bucket) (models.Aspect, bool) {
	aspect, ok := a[b.Kind]
	return aspect, ok
}
