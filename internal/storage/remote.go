package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"gallery/internal/models"
)

// MetadataStore is the asset table; *Storage implements it.
type MetadataStore interface {
	SaveAsset(ctx context.Context, rec Record) error
	ListAssets(ctx context.Context, q models.SearchQuery) ([]models.ImageAsset, error)
	DeleteAsset(ctx context.Context, group, id string) (string, error)
}

// ObjectStore holds asset bytes; *Blobs implements it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// Remote is the production asset store: bytes in object storage, metadata
// in PostgreSQL. Listings read metadata only, and metadata is written after
// the bytes, so a half-finished upload is never listed.
type Remote struct {
	meta    MetadataStore
	objects ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewRemote(meta MetadataStore, objects ObjectStore, logger *slog.Logger) *Remote {
	return &Remote{meta: meta, objects: objects, logger: logger, now: time.Now}
}

func (r *Remote) Search(ctx context.Context, q models.SearchQuery) ([]models.ImageAsset, error) {
	return r.meta.ListAssets(ctx, q)
}

func (r *Remote) Upload(ctx context.Context, req models.UploadRequest) (models.ImageAsset, error) {
	const op = "storage.Remote.Upload"

	tags := uniqueTags(req.Tags)
	if len(tags) == 0 {
		return models.ImageAsset{}, fmt.Errorf("%s: %w: no tags", op, models.ErrStoreRejected)
	}
	norm, err := normalize(req.Data, req.Hints)
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.NewString()
	key := path.Join(req.Group, id+".jpg")
	if err := r.objects.Put(ctx, key, norm.data, storedContentType); err != nil {
		return models.ImageAsset{}, fmt.Errorf("%s: %w", op, err)
	}

	rec := Record{
		ImageAsset: models.ImageAsset{
			ID:        id,
			URL:       r.objects.URL(key),
			Width:     norm.width,
			Height:    norm.height,
			Tags:      tags,
			CreatedAt: r.now().UTC(),
		},
		Group:     req.Group,
		ObjectKey: key,
	}
	if err := r.meta.SaveAsset(ctx, rec); err != nil {
		if rmErr := r.objects.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			r.logger.Error("orphaned object after failed insert",
				slog.String("key", key),
				slog.Any("error", rmErr),
			)
		}
		return models.ImageAsset{}, fmt.Errorf("%s: %w", op, err)
	}

	r.logger.Info("asset stored",
		slog.String("id", id),
		slog.Any("tags", tags),
		slog.Int("width", norm.width),
		slog.Int("height", norm.height),
	)
	return rec.ImageAsset, nil
}

// Destroy removes the asset. A missing id reports models.ErrNotFound.
func (r *Remote) Destroy(ctx context.Context, group, id string) error {
	const op = "storage.Remote.Destroy"

	key, err := r.meta.DeleteAsset(ctx, group, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// The row is gone, so the asset is no longer listed; a stray object is
	// only logged.
	if err := r.objects.Remove(ctx, key); err != nil {
		r.logger.Warn("failed to remove object", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
