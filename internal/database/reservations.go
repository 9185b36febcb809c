package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"deskhub/internal/models"
)

// ReservationFilter narrows ListReservations. Zero values mean "no filter".
type ReservationFilter struct {
	UserID   int64 // reservations made by this user
	HostID   int64 // reservations on offices owned by this user
	OfficeID int64
	Status   string
	// From/To filter by date-range intersection using the same predicate as
	// the booking overlap check.
	From, To *time.Time
	Page     int
	PerPage  int
}

const reservationColumns = `id, user_id, office_id, start_date, end_date, status, price,
       COALESCE(wifi_password, ''), created_at, updated_at`

func (db *DB) CreateReservation(ctx context.Context, res *models.Reservation) error {
	query := `INSERT INTO reservations (
                user_id, office_id, start_date, end_date, status, price, wifi_password,
                created_at, updated_at
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		res.UserID, res.OfficeID,
		res.StartDate.Format(models.DateFormat), res.EndDate.Format(models.DateFormat),
		res.Status, res.Price, res.WifiPassword, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	res.ID = id
	res.CreatedAt = now
	res.UpdatedAt = now
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return res, nil
}

// HasActiveOverlapping reports whether any active reservation on the office
// intersects [start, end]. The predicate mirrors models.IntervalsOverlap and
// must stay row-oriented: either bound of the existing row falls inside the
// requested range, or the existing row strictly contains it.
func (db *DB) HasActiveOverlapping(ctx context.Context, officeID int64, start, end time.Time) (bool, error) {
	from := start.Format(models.DateFormat)
	to := end.Format(models.DateFormat)

	query := `SELECT EXISTS (
                SELECT 1 FROM reservations
                WHERE office_id = ? AND status = ?
                  AND (
                        start_date BETWEEN ? AND ?
                     OR end_date BETWEEN ? AND ?
                     OR (start_date < ? AND end_date > ?)
                  )
              )`
	var exists bool
	err := db.QueryRowContext(ctx, query,
		officeID, models.ReservationActive,
		from, to, from, to, from, to,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return exists, nil
}

func (db *DB) UpdateReservationStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (db *DB) ListReservations(ctx context.Context, filter ReservationFilter) ([]*models.Reservation, error) {
	var (
		where []string
		args  []any
	)

	where = append(where, "1 = 1")
	if filter.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.HostID != 0 {
		where = append(where, "office_id IN (SELECT id FROM offices WHERE user_id = ?)")
		args = append(args, filter.HostID)
	}
	if filter.OfficeID != 0 {
		where = append(where, "office_id = ?")
		args = append(args, filter.OfficeID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.From != nil && filter.To != nil {
		from := filter.From.Format(models.DateFormat)
		to := filter.To.Format(models.DateFormat)
		where = append(where, `(start_date BETWEEN ? AND ? OR end_date BETWEEN ? AND ? OR (start_date < ? AND end_date > ?))`)
		args = append(args, from, to, from, to, from, to)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = models.DefaultPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE ` + strings.Join(where, " AND ") + `
              ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservationRows(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// ListReservationsStartingOn returns active reservations whose start date
// equals the given day. Used by the daily reminder job.
func (db *DB) ListReservationsStartingOn(ctx context.Context, day time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE status = ? AND start_date = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, models.ReservationActive, day.Format(models.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to list starting reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservationRows(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row *sql.Row) (*models.Reservation, error) {
	return scanReservationFrom(row)
}

func scanReservationRows(rows *sql.Rows) (*models.Reservation, error) {
	res, err := scanReservationFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	return res, nil
}

func scanReservationFrom(s rowScanner) (*models.Reservation, error) {
	var (
		res                models.Reservation
		startDate, endDate string
	)
	err := s.Scan(
		&res.ID, &res.UserID, &res.OfficeID, &startDate, &endDate,
		&res.Status, &res.Price, &res.WifiPassword, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if res.StartDate, err = time.Parse(models.DateFormat, startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date %q: %w", startDate, err)
	}
	if res.EndDate, err = time.Parse(models.DateFormat, endDate); err != nil {
		return nil, fmt.Errorf("failed to parse end_date %q: %w", endDate, err)
	}
	return &res, nil
}
