package database

import (
	"context"
	"fmt"
	"strings"

	"deskhub/internal/models"
)

func (db *DB) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpsertTag inserts the tag by name if missing and fills its id.
func (db *DB) UpsertTag(ctx context.Context, tag *models.Tag) error {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag.Name); err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = ?`, tag.Name).Scan(&tag.ID); err != nil {
		return fmt.Errorf("failed to read tag id: %w", err)
	}
	return nil
}

// TagsExist verifies every id references a known tag.
func (db *DB) TagsExist(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var count int
	query := `SELECT COUNT(DISTINCT id) FROM tags WHERE id IN (` + placeholders + `)`
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("failed to check tags: %w", err)
	}
	if count != len(uniqueIDs(ids)) {
		return ErrTagNotFound
	}
	return nil
}

func (db *DB) ListOfficeTags(ctx context.Context, officeID int64) ([]models.Tag, error) {
	query := `SELECT t.id, t.name FROM tags t
              JOIN office_tag ot ON ot.tag_id = t.id
              WHERE ot.office_id = ? ORDER BY t.id ASC`
	rows, err := db.QueryContext(ctx, query, officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list office tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
