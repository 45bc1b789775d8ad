// Package catalog is the client side of the remote asset store: listing,
// creating and deleting gallery assets under one grouping path.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"gallery/internal/bucket"
	"gallery/internal/models"
)

// MaxResults caps every listing. There is no cursor: older assets past the
// cap are not reachable through List.
const MaxResults = 30

// Store is the remote asset-storage service.
type Store interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.ImageAsset, error)
	Upload(ctx context.Context, req models.UploadRequest) (models.ImageAsset, error)
	Destroy(ctx context.Context, group, id string) error
}

type Options struct {
	Group string
	Limit int
	Hints models.TransformHints
}

type Client struct {
	store Store
	opts  Options
}

func New(store Store, opts Options) *Client {
	if opts.Limit <= 0 || opts.Limit > MaxResults {
		opts.Limit = MaxResults
	}
	return &Client{store: store, opts: opts}
}

// List returns the newest assets, optionally only those tagged filterTag
// ("" or "All" means no filter). The query runs when the sequence is first
// ranged over; ranging again yields nothing, so call List again to re-fetch.
func (c *Client) List(ctx context.Context, filterTag string) iter.Seq2[models.ImageAsset, error] {
	const op = "catalog.List"

	tag := strings.TrimSpace(filterTag)
	if strings.EqualFold(tag, "All") {
		tag = ""
	}

	var consumed atomic.Bool
	return func(yield func(models.ImageAsset, error) bool) {
		if consumed.Swap(true) {
			return
		}

		assets, err := c.store.Search(ctx, models.SearchQuery{
			Group: c.opts.Group,
			Tag:   tag,
			Limit: c.opts.Limit,
		})
		if err != nil {
			yield(models.ImageAsset{}, classify(op, err))
			return
		}
		if len(assets) > c.opts.Limit {
			assets = assets[:c.opts.Limit]
		}
		for _, a := range assets {
			if !yield(a, nil) {
				return
			}
		}
	}
}

// Collect drains a listing into a slice, stopping at the first error.
func Collect(seq iter.Seq2[models.ImageAsset, error]) ([]models.ImageAsset, error) {
	assets := []models.ImageAsset{}
	for a, err := range seq {
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// Create stores data as a new asset in b. The bucket is encoded to its tag
// form here and nowhere else.
func (c *Client) Create(ctx context.Context, data []byte, b bucket.Bucket) (models.ImageAsset, error) {
	const op = "catalog.Create"

	tags, err := b.Tags()
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("%s: %w: %v", op, models.ErrStoreRejected, err)
	}
	if len(data) == 0 {
		return models.ImageAsset{}, fmt.Errorf("%s: %w: empty image", op, models.ErrStoreRejected)
	}

	asset, err := c.store.Upload(ctx, models.UploadRequest{
		Group: c.opts.Group,
		Data:  data,
		Tags:  tags,
		Hints: c.opts.Hints,
	})
	if err != nil {
		return models.ImageAsset{}, classify(op, err)
	}
	return asset, nil
}

// Delete removes the asset. Deleting an id that is already gone succeeds.
func (c *Client) Delete(ctx context.Context, id string) error {
	const op = "catalog.Delete"

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w: empty id", op, models.ErrStoreRejected)
	}
	err := c.store.Destroy(ctx, c.opts.Group, id)
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return classify(op, err)
}

// classify maps store errors onto the two failure kinds callers act on:
// rejected input is permanent, everything else is treated as transient.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrStoreRejected), errors.Is(err, models.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnavailable, err)
	}
}
