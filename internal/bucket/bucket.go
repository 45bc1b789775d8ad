// Package bucket classifies gallery assets by their tags.
//
// Raw tag strings are only read and written here; the rest of the service
// works with Bucket values.
package bucket

import (
	"fmt"
	"strings"

	"gallery/internal/models"
)

const (
	HeroTag      = "Hero"
	PortfolioTag = "Portfolio"

	// UniqueLabel is shown for assets whose tags name no known category.
	UniqueLabel = "Unique"
)

// Category is one Portfolio sub-bucket.
type Category string

const (
	Bridal   Category = "Bridal"
	Guest    Category = "Guest"
	Festival Category = "Festival"
)

// Categories is the category enumeration. Order decides ties in Resolve.
var Categories = []Category{Bridal, Guest, Festival}

// ParseCategory matches s against the enumeration, ignoring case.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

type Kind int

const (
	Unclassified Kind = iota
	Hero
	Portfolio
)

func (k Kind) String() string {
	switch k {
	case Hero:
		return "hero"
	case Portfolio:
		return "portfolio"
	default:
		return "unclassified"
	}
}

// Bucket is the display group an asset belongs to. Category is only set for
// Portfolio.
type Bucket struct {
	Kind     Kind
	Category Category
}

func HeroBucket() Bucket { return Bucket{Kind: Hero} }

func PortfolioBucket(c Category) Bucket { return Bucket{Kind: Portfolio, Category: c} }

// Label is the name shown for the bucket in gallery views.
func (b Bucket) Label() string {
	switch b.Kind {
	case Hero:
		return HeroTag
	case Portfolio:
		return string(b.Category)
	default:
		return UniqueLabel
	}
}

func (b Bucket) String() string {
	if b.Kind == Portfolio {
		return fmt.Sprintf("portfolio/%s", b.Category)
	}
	return b.Kind.String()
}

// Tags encodes b in the form the asset store keeps, always with the
// canonical category spelling. Unclassified buckets are never written.
func (b Bucket) Tags() ([]string, error) {
	switch b.Kind {
	case Hero:
		return []string{HeroTag}, nil
	case Portfolio:
		c, ok := ParseCategory(string(b.Category))
		if !ok {
			return nil, fmt.Errorf("bucket: unknown category %q", b.Category)
		}
		return []string{PortfolioTag, string(c)}, nil
	default:
		return nil, fmt.Errorf("bucket: %s bucket cannot be written", b.Kind)
	}
}

// Resolve maps a tag set to its bucket. Hero wins over any category tag, and
// categories are matched in enumeration order. It never fails: tag sets that
// name nothing known resolve to Unclassified.
func Resolve(tags []string) Bucket {
	for _, t := range tags {
		if strings.EqualFold(t, HeroTag) {
			return HeroBucket()
		}
	}
	for _, c := range Categories {
		for _, t := range tags {
			if strings.EqualFold(t, string(c)) {
				return PortfolioBucket(c)
			}
		}
	}
	return Bucket{Kind: Unclassified}
}

// ResolveAsset is Resolve applied to the asset's tags.
func ResolveAsset(a models.ImageAsset) Bucket {
	return Resolve(a.Tags)
}

// Parse builds a writable bucket from operator input: kind is "hero" or
// "portfolio", and category is required for portfolio.
func Parse(kind, category string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "hero":
		return HeroBucket(), nil
	case "portfolio":
		c, ok := ParseCategory(category)
		if !ok {
			return Bucket{}, fmt.Errorf("bucket: unknown category %q", category)
		}
		return PortfolioBucket(c), nil
	default:
		return Bucket{}, fmt.Errorf("bucket: unknown kind %q", kind)
	}
}
