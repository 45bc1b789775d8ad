package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery/internal/bucket"
	"gallery/internal/models"
	"gallery/internal/upload"
)

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestNewApp_InMemory(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Catalog.MaxPixels = 16 * 16

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.db)
	require.NotNil(t, a.memory)
	assert.Same(t, a.memory, a.store)
	assert.NoError(t, a.health(context.Background()))

	// The configured pixel ceiling reaches the orchestrator.
	_, err = a.uploads.Choose(upload.NewSession("studio"), tinyPNG(t, 17, 16), "wide.png", bucket.HeroBucket())
	assert.ErrorIs(t, err, models.ErrRasterizationFailed)
}

func TestNewApp_BadAspect(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Aspects = map[string]models.Aspect{"portfolio": {Width: 0, Height: 4}}

	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
