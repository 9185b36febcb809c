package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskhub/internal/models"
)

func (db *DB) CreateImage(ctx context.Context, image *models.Image) error {
	query := `INSERT INTO images (office_id, path, created_at) VALUES (?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, image.OfficeID, image.Path, now)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	image.ID = id
	image.CreatedAt = now
	return nil
}

func (db *DB) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	var image models.Image
	err := db.QueryRowContext(ctx,
		`SELECT id, office_id, path, created_at FROM images WHERE id = ?`, id).
		Scan(&image.ID, &image.OfficeID, &image.Path, &image.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &image, nil
}

// DeleteImage removes the row. The office's featured image cannot be deleted.
func (db *DB) DeleteImage(ctx context.Context, id int64) error {
	image, err := db.GetImage(ctx, id)
	if err != nil {
		return err
	}

	var featured int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offices WHERE id = ? AND featured_image_id = ?`,
		image.OfficeID, id).Scan(&featured)
	if err != nil {
		return fmt.Errorf("failed to check featured image: %w", err)
	}
	if featured > 0 {
		return ErrFeaturedImage
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (db *DB) ListOfficeImages(ctx context.Context, officeID int64) ([]models.Image, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, office_id, path, created_at FROM images WHERE office_id = ? ORDER BY id ASC`, officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var image models.Image
		if err := rows.Scan(&image.ID, &image.OfficeID, &image.Path, &image.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
