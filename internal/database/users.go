package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskhub/internal/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, email, is_admin, chat_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, user.Name, user.Email, user.IsAdmin, user.ChatID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// CreateOrUpdateUser upserts by email. Used when loading seed users.
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	existing, err := db.GetUserByEmail(ctx, user.Email)
	if errors.Is(err, ErrUserNotFound) {
		return db.CreateUser(ctx, user)
	}
	if err != nil {
		return err
	}

	query := `UPDATE users SET name = ?, is_admin = ?, chat_id = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, user.Name, user.IsAdmin, user.ChatID, time.Now(), existing.ID); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	user.ID = existing.ID
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, is_admin, chat_id, created_at, updated_at
                            FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, is_admin, chat_id, created_at, updated_at
                            FROM users WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.ChatID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (db *DB) GetAdmins(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, name, email, is_admin, chat_id, created_at, updated_at
              FROM users WHERE is_admin = 1`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.ChatID,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, &user)
	}
	return admins, rows.Err()
}
