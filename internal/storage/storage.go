// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"gallery/internal/models"
)

// Record is an asset row: the public asset plus where it lives.
type Record struct {
	models.ImageAsset
	Group     string
	ObjectKey string
}

// Storage keeps asset metadata in PostgreSQL.
type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

// NewStorage connects to dsn and applies pending migrations.
func NewStorage(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) SaveAsset(ctx context.Context, rec Record) error {
	const op = "storage.SaveAsset"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO assets (id, group_path, object_key, url, width, height, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Group, rec.ObjectKey, rec.URL, rec.Width, rec.Height, rec.Tags, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) ListAssets(ctx context.Context, q models.SearchQuery) ([]models.ImageAsset, error) {
	const op = "storage.ListAssets"

	rows, err := s.pool.Query(ctx,
		`SELECT id, url, width, height, tags, created_at
		 FROM assets
		 WHERE group_path = $1 AND ($2 = '' OR $2 = ANY(tags))
		 ORDER BY created_at DESC
		 LIMIT $3`,
		q.Group, q.Tag, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var assets []models.ImageAsset
	for rows.Next() {
		var a models.ImageAsset
		if err := rows.Scan(&a.ID, &a.URL, &a.Width, &a.Height, &a.Tags, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return assets, nil
}

// DeleteAsset removes the row and returns the object key it pointed at.
func (s *Storage) DeleteAsset(ctx context.Context, group, id string) (string, error) {
	const op = "storage.DeleteAsset"

	var key string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM assets WHERE group_path = $1 AND id = $2 RETURNING object_key`,
		group, id).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return key, nil
}
