// Package gallery projects a catalog listing into what the public site shows:
// the hero banner and the portfolio grouped by category.
package gallery

import (
	"fmt"
	"strings"

	"gallery/internal/bucket"
	"gallery/internal/models"
)

// DisplayItem is one tile of the portfolio grid.
type DisplayItem struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Category string `json:"category"`
}

type filterKind int

const (
	filterAll filterKind = iota
	filterHero
	filterCategory
	filterUnique
)

// Filter selects which items a view shows. The zero value is All.
type Filter struct {
	kind     filterKind
	category bucket.Category
}

var (
	All    = Filter{kind: filterAll}
	Hero   = Filter{kind: filterHero}
	Unique = Filter{kind: filterUnique}
)

func CategoryFilter(c bucket.Category) Filter {
	return Filter{kind: filterCategory, category: c}
}

// Filters lists the tabs shown on the site, in display order.
func Filters() []Filter {
	filters := []Filter{All}
	for _, c := range bucket.Categories {
		filters = append(filters, CategoryFilter(c))
	}
	return filters
}

// ParseFilter accepts "", "All", "Hero", "Unique" or a category name, ignoring
// case.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.EqualFold(s, "All"):
		return All, nil
	case strings.EqualFold(s, bucket.HeroTag):
		return Hero, nil
	case strings.EqualFold(s, bucket.UniqueLabel):
		return Unique, nil
	}
	if c, ok := bucket.ParseCategory(s); ok {
		return CategoryFilter(c), nil
	}
	return Filter{}, fmt.Errorf("gallery: unknown filter %q", s)
}

func (f Filter) String() string {
	switch f.kind {
	case filterHero:
		return bucket.HeroTag
	case filterCategory:
		return string(f.category)
	case filterUnique:
		return bucket.UniqueLabel
	default:
		return "All"
	}
}

func (f Filter) match(b bucket.Bucket) bool {
	switch f.kind {
	case filterHero:
		return b.Kind == bucket.Hero
	case filterCategory:
		return b.Kind == bucket.Portfolio && b.Category == f.category
	case filterUnique:
		return b.Kind == bucket.Unclassified
	default:
		return b.Kind != bucket.Hero
	}
}

// Project keeps the assets f selects, in listing order. Hero assets only ever
// appear under the Hero filter.
func Project(assets []models.ImageAsset, f Filter) []DisplayItem {
	items := make([]DisplayItem, 0, len(assets))
	for _, a := range assets {
		b := bucket.ResolveAsset(a)
		if !f.match(b) {
			continue
		}
		items = append(items, DisplayItem{
			ID:       a.ID,
			URL:      a.URL,
			Width:    a.Width,
			Height:   a.Height,
			Category: b.Label(),
		})
	}
	return items
}

// HeroBanner returns the newest Hero asset.
func HeroBanner(assets []models.ImageAsset) (models.ImageAsset, bool) {
	var (
		best  models.ImageAsset
		found bool
	)
	for _, a := range assets {
		if bucket.ResolveAsset(a).Kind != bucket.Hero {
			continue
		}
		if !found || a.CreatedAt.After(best.CreatedAt) {
			best, found = a, true
		}
	}
	return best, found
}
