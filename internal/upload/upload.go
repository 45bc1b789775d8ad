// Package upload runs an operator's upload attempt from file selection
// through cropping to a stored catalog asset.
//
//	Idle -> FileChosen -> Cropping -> Rasterizing -> Uploading -> Done
//	                                      any step fails -> Failed
//
// Once Rasterizing starts the attempt runs to Done or Failed; it cannot be
// cancelled and is never retried automatically.
package upload

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"gallery/internal/bucket"
	"gallery/internal/catalog"
	"gallery/internal/crop"
	"gallery/internal/lock"
	"gallery/internal/models"
	"gallery/internal/raster"
)

// DefaultLockTTL bounds how long a crashed upload can block its session.
const DefaultLockTTL = 2 * time.Minute

// Catalog is the part of the catalog client an upload needs.
type Catalog interface {
	Create(ctx context.Context, data []byte, b bucket.Bucket) (models.ImageAsset, error)
	List(ctx context.Context, filterTag string) iter.Seq2[models.ImageAsset, error]
}

// Config wires an Orchestrator. MaxPixels bounds width*height of chosen
// files; zero means raster.DefaultMaxPixels.
type Config struct {
	Aspects    bucket.Aspects
	Rasterizer *raster.Rasterizer
	Locker     lock.Locker
	LockTTL    time.Duration
	MaxPixels  int
}

type Orchestrator struct {
	catalog    Catalog
	aspects    bucket.Aspects
	rasterizer *raster.Rasterizer
	locker     lock.Locker
	lockTTL    time.Duration
	maxPixels  int
	logger     *slog.Logger
}

func New(c Catalog, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.Aspects == nil {
		cfg.Aspects = bucket.DefaultAspects()
	}
	if cfg.Rasterizer == nil {
		cfg.Rasterizer = raster.New(raster.DefaultQuality)
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.NewMemory()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	return &Orchestrator{
		catalog:    c,
		aspects:    cfg.Aspects,
		rasterizer: cfg.Rasterizer,
		locker:     cfg.Locker,
		lockTTL:    cfg.LockTTL,
		maxPixels:  cfg.MaxPixels,
		logger:     logger,
	}
}

// Result is what a confirmed upload produces: the new asset and a fresh
// listing taken after it was stored.
type Result struct {
	Asset  models.ImageAsset   `json:"asset"`
	Images []models.ImageAsset `json:"images"`
}

// Choose starts an attempt with the chosen file bound for b. A finished
// attempt, or one still being cropped, is discarded first.
func (o *Orchestrator) Choose(sess *Session, data []byte, filename string, b bucket.Bucket) (Snapshot, error) {
	const op = "upload.Choose"

	aspect, ok := o.aspects.For(b)
	if !ok {
		return Snapshot{}, fmt.Errorf("%s: %w: no crop aspect for %s", op, models.ErrInvalidSelection, b)
	}

	// Decoding does not touch the session, so it runs unlocked.
	src, decodeErr := raster.DecodeLimit(data, o.maxPixels)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Busy() {
		return Snapshot{}, fmt.Errorf("%s: %w", op, models.ErrUploadInProgress)
	}
	sess.resetLocked()
	sess.filename = filename
	sess.bucket = b

	if decodeErr != nil {
		sess.state = Failed
		sess.failure = &StageError{Stage: StageDecode, Err: decodeErr}
		o.logger.Warn("upload source rejected",
			slog.String("session", sess.id),
			slog.String("filename", filename),
			slog.Any("error", decodeErr),
		)
		return sess.snapshotLocked(), sess.failure
	}

	sess.source = src
	sess.selection = crop.NewSelection(aspect)
	sess.state = FileChosen

	o.logger.Info("upload file chosen",
		slog.String("session", sess.id),
		slog.String("filename", filename),
		slog.String("bucket", b.String()),
		slog.Int("width", src.Width()),
		slog.Int("height", src.Height()),
	)
	return sess.snapshotLocked(), nil
}

// Adjust updates the crop selection and returns the source rectangle it
// currently covers. Zoom below 1 is rejected and leaves the session as it
// was.
func (o *Orchestrator) Adjust(sess *Session, pan models.Pan, zoom float64) (models.Rect, error) {
	const op = "upload.Adjust"

	z, err := crop.NormalizeZoom(zoom)
	if err != nil {
		return models.Rect{}, fmt.Errorf("%s: %w", op, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Busy() {
		return models.Rect{}, fmt.Errorf("%s: %w", op, models.ErrUploadInProgress)
	}
	if !sess.state.Editable() {
		return models.Rect{}, fmt.Errorf("%s: %w: session is %s", op, models.ErrInvalidTransition, sess.state)
	}

	sel := sess.selection
	sel.Pan = pan
	sel.Zoom = z
	rect, err := crop.SourceRect(sess.source.Width(), sess.source.Height(), sel)
	if err != nil {
		return models.Rect{}, fmt.Errorf("%s: %w", op, err)
	}

	sess.selection = sel
	sess.state = Cropping
	return rect, nil
}

// Cancel discards the chosen file and selection. A committed upload cannot be
// cancelled.
func (o *Orchestrator) Cancel(sess *Session) error {
	const op = "upload.Cancel"

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Busy() {
		return fmt.Errorf("%s: %w", op, models.ErrUploadInProgress)
	}
	if sess.state != Idle {
		o.logger.Info("upload cancelled", slog.String("session", sess.id), slog.String("state", sess.state.String()))
	}
	sess.resetLocked()
	return nil
}

// Confirm crops, encodes and stores the selection, then re-lists the
// catalog. A second Confirm while one is running is rejected.
func (o *Orchestrator) Confirm(ctx context.Context, sess *Session) (Result, error) {
	const op = "upload.Confirm"

	sess.mu.Lock()
	switch {
	case sess.state.Busy():
		sess.mu.Unlock()
		return Result{}, fmt.Errorf("%s: %w", op, models.ErrUploadInProgress)
	case !sess.state.Editable():
		state := sess.state
		sess.mu.Unlock()
		return Result{}, fmt.Errorf("%s: %w: session is %s", op, models.ErrInvalidTransition, state)
	}
	previous := sess.state
	sess.state = Rasterizing
	src, sel, b := sess.source, sess.selection, sess.bucket
	sess.mu.Unlock()

	release, err := o.locker.Acquire(ctx, "upload:"+sess.id, o.lockTTL)
	if err != nil {
		sess.mu.Lock()
		sess.state = previous
		sess.mu.Unlock()
		if errors.Is(err, lock.ErrHeld) {
			return Result{}, fmt.Errorf("%s: %w", op, models.ErrUploadInProgress)
		}
		return Result{}, fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnavailable, err)
	}
	defer release()

	// The attempt is committed; a caller going away does not abort it.
	ctx = context.WithoutCancel(ctx)

	rect, err := crop.SourceRect(src.Width(), src.Height(), sel)
	if err != nil {
		return Result{}, o.fail(sess, StageCrop, err)
	}
	data, err := o.rasterizer.Extract(src, rect)
	if err != nil {
		return Result{}, o.fail(sess, StageRasterize, err)
	}

	sess.mu.Lock()
	sess.state = Uploading
	sess.mu.Unlock()

	asset, err := o.catalog.Create(ctx, data, b)
	if err != nil {
		return Result{}, o.fail(sess, StageUpload, err)
	}

	sess.mu.Lock()
	sess.state = Done
	sess.asset = &asset
	sess.source = nil
	sess.mu.Unlock()

	o.logger.Info("upload stored",
		slog.String("session", sess.id),
		slog.String("asset", asset.ID),
		slog.String("bucket", b.String()),
		slog.Any("rect", rect),
	)

	images, err := catalog.Collect(o.catalog.List(ctx, ""))
	if err != nil {
		o.logger.Warn("refresh after upload failed", slog.String("session", sess.id), slog.Any("error", err))
	}
	return Result{Asset: asset, Images: images}, nil
}

func (o *Orchestrator) fail(sess *Session, stage string, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}

	sess.mu.Lock()
	sess.state = Failed
	sess.failure = stageErr
	sess.source = nil
	sess.mu.Unlock()

	o.logger.Error("upload failed",
		slog.String("session", sess.id),
		slog.String("stage", stage),
		slog.Any("error", err),
	)
	return stageErr
}
