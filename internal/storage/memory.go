package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gallery/internal/models"
)

type memoryEntry struct {
	group string
	asset models.ImageAsset
	data  []byte
}

// Memory is an in-process asset store with the same contract as Remote. The
// service falls back to it when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	baseURL string
	now     func() time.Time
	last    time.Time
}

// NewMemory returns an empty store whose asset URLs start with baseURL.
func NewMemory(baseURL string) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (m *Memory) Search(_ context.Context, q models.SearchQuery) ([]models.ImageAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var assets []models.ImageAsset
	for _, e := range m.entries {
		if e.group != q.Group {
			continue
		}
		if q.Tag != "" && !e.asset.HasTag(q.Tag) {
			continue
		}
		assets = append(assets, cloneAsset(e.asset))
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
	if q.Limit > 0 && len(assets) > q.Limit {
		assets = assets[:q.Limit]
	}
	return assets, nil
}

func (m *Memory) Upload(_ context.Context, req models.UploadRequest) (models.ImageAsset, error) {
	const op = "storage.Memory.Upload"

	tags := uniqueTags(req.Tags)
	if len(tags) == 0 {
		return models.ImageAsset{}, fmt.Errorf("%s: %w: no tags", op, models.ErrStoreRejected)
	}
	norm, err := normalize(req.Data, req.Hints)
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep creation times strictly increasing so newest-first order is total.
	created := m.now().UTC()
	if !created.After(m.last) {
		created = m.last.Add(time.Microsecond)
	}
	m.last = created

	id := uuid.NewString()
	asset := models.ImageAsset{
		ID:        id,
		URL:       m.baseURL + "/" + id + ".jpg",
		Width:     norm.width,
		Height:    norm.height,
		Tags:      tags,
		CreatedAt: created,
	}
	m.entries[id] = memoryEntry{group: req.Group, asset: asset, data: norm.data}
	return cloneAsset(asset), nil
}

func (m *Memory) Destroy(_ context.Context, group, id string) error {
	const op = "storage.Memory.Destroy"

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.group != group {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	delete(m.entries, id)
	return nil
}

// Object returns the stored bytes for an asset id.
func (m *Memory) Object(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.data, true
}

func cloneAsset(a models.ImageAsset) models.ImageAsset {
	a.Tags = append([]string(nil), a.Tags...)
	return a
}
