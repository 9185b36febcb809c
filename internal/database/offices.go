package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"deskhub/internal/models"
)

// OfficeFilter narrows ListOffices. Zero values mean "no filter".
type OfficeFilter struct {
	UserID    int64 // offices owned by this user
	VisitorID int64 // offices the user has reserved at least once
	// PublicOnly keeps approved, non-hidden offices only. The caller decides
	// whether the requester may see their own unapproved listings.
	PublicOnly bool
	Lat, Lng   *float64 // order by distance when both set
	Page       int
	PerPage    int
}

const officeColumns = `o.id, o.user_id, o.title, o.description, o.lat, o.lng,
       o.address_line1, COALESCE(o.address_line2, ''), o.approval_status, o.hidden,
       o.price_per_day, o.monthly_discount, o.featured_image_id,
       o.created_at, o.updated_at`

func (db *DB) CreateOffice(ctx context.Context, office *models.Office, tagIDs []int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO offices (
                user_id, title, description, lat, lng, address_line1, address_line2,
                approval_status, hidden, price_per_day, monthly_discount, created_at, updated_at
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		office.UserID, office.Title, office.Description, office.Lat, office.Lng,
		office.AddressLine1, office.AddressLine2, office.ApprovalStatus, office.Hidden,
		office.PricePerDay, office.MonthlyDiscount, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create office: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO office_tag (office_id, tag_id) VALUES (?, ?)`, id, tagID); err != nil {
			return fmt.Errorf("failed to attach tag %d: %w", tagID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit office: %w", err)
	}

	office.ID = id
	office.CreatedAt = now
	office.UpdatedAt = now
	return nil
}

func (db *DB) GetOffice(ctx context.Context, id int64) (*models.Office, error) {
	query := `SELECT ` + officeColumns + ` FROM offices o WHERE o.id = ? AND o.deleted_at IS NULL`
	office, err := db.scanOffice(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfficeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get office: %w", err)
	}
	return office, nil
}

// UpdateOffice persists the mutable office fields. When replaceTags is true
// the office's tag set is replaced with tagIDs in the same transaction.
func (db *DB) UpdateOffice(ctx context.Context, office *models.Office, tagIDs []int64, replaceTags bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE offices SET
                title = ?, description = ?, lat = ?, lng = ?, address_line1 = ?, address_line2 = ?,
                approval_status = ?, hidden = ?, price_per_day = ?, monthly_discount = ?,
                featured_image_id = ?, updated_at = ?
              WHERE id = ? AND deleted_at IS NULL`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		office.Title, office.Description, office.Lat, office.Lng,
		office.AddressLine1, office.AddressLine2, office.ApprovalStatus, office.Hidden,
		office.PricePerDay, office.MonthlyDiscount, office.FeaturedImageID, now, office.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update office: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrOfficeNotFound
	}

	if replaceTags {
		if _, err := tx.ExecContext(ctx, `DELETE FROM office_tag WHERE office_id = ?`, office.ID); err != nil {
			return fmt.Errorf("failed to clear office tags: %w", err)
		}
		for _, tagID := range tagIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO office_tag (office_id, tag_id) VALUES (?, ?)`, office.ID, tagID); err != nil {
				return fmt.Errorf("failed to attach tag %d: %w", tagID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit office update: %w", err)
	}
	office.UpdatedAt = now
	return nil
}

// DeleteOffice soft-deletes the office and removes its image rows. It fails
// with ErrActiveReservations while active reservations exist.
func (db *DB) DeleteOffice(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE office_id = ? AND status = ?`,
		id, models.ReservationActive).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count active reservations: %w", err)
	}
	if active > 0 {
		return ErrActiveReservations
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE offices SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete office: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrOfficeNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE office_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete office images: %w", err)
	}

	return tx.Commit()
}

func (db *DB) ListOffices(ctx context.Context, filter OfficeFilter) ([]*models.Office, error) {
	var (
		where []string
		args  []any
	)

	where = append(where, "o.deleted_at IS NULL")
	if filter.PublicOnly {
		where = append(where, "o.hidden = 0 AND o.approval_status = ?")
		args = append(args, models.ApprovalApproved)
	}
	if filter.UserID != 0 {
		where = append(where, "o.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.VisitorID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM reservations r WHERE r.office_id = o.id AND r.user_id = ?)")
		args = append(args, filter.VisitorID)
	}

	// Squared equirectangular distance. Longitude degrees shrink with
	// latitude, so the lng delta is scaled by cos(lat/57.3); the factor is
	// computed in Go and bound as a parameter to avoid sqlite math builtins.
	order := "o.id ASC"
	if filter.Lat != nil && filter.Lng != nil {
		cosLat := math.Cos(*filter.Lat / 57.3)
		order = "((o.lat - ?) * (o.lat - ?) + (o.lng - ?) * (o.lng - ?) * ? * ?) ASC"
		args = append(args, *filter.Lat, *filter.Lat, *filter.Lng, *filter.Lng, cosLat, cosLat)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = models.DefaultPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := `SELECT ` + officeColumns + `,
              (SELECT COUNT(*) FROM reservations r WHERE r.office_id = o.id AND r.status = 'active')
              FROM offices o
              WHERE ` + strings.Join(where, " AND ") + `
              ORDER BY ` + order + `
              LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	defer rows.Close()

	var offices []*models.Office
	for rows.Next() {
		var office models.Office
		if err := rows.Scan(
			&office.ID, &office.UserID, &office.Title, &office.Description, &office.Lat, &office.Lng,
			&office.AddressLine1, &office.AddressLine2, &office.ApprovalStatus, &office.Hidden,
			&office.PricePerDay, &office.MonthlyDiscount, &office.FeaturedImageID,
			&office.CreatedAt, &office.UpdatedAt, &office.ReservationsCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan office: %w", err)
		}
		offices = append(offices, &office)
	}
	return offices, rows.Err()
}

// LoadOfficeRelations fills owner, images, tags and the active reservation
// count for a single office.
func (db *DB) LoadOfficeRelations(ctx context.Context, office *models.Office) error {
	owner, err := db.GetUserByID(ctx, office.UserID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	office.Owner = owner

	images, err := db.ListOfficeImages(ctx, office.ID)
	if err != nil {
		return err
	}
	office.Images = images

	tags, err := db.ListOfficeTags(ctx, office.ID)
	if err != nil {
		return err
	}
	office.Tags = tags

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE office_id = ? AND status = ?`,
		office.ID, models.ReservationActive).Scan(&office.ReservationsCount)
	if err != nil {
		return fmt.Errorf("failed to count reservations: %w", err)
	}
	return nil
}

func (db *DB) scanOffice(row *sql.Row) (*models.Office, error) {
	var office models.Office
	err := row.Scan(
		&office.ID, &office.UserID, &office.Title, &office.Description, &office.Lat, &office.Lng,
		&office.AddressLine1, &office.AddressLine2, &office.ApprovalStatus, &office.Hidden,
		&office.PricePerDay, &office.MonthlyDiscount, &office.FeaturedImageID,
		&office.CreatedAt, &office.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &office, nil
}
