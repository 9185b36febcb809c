package database

import (
	"context"
	"fmt"
	"time"

	"deskhub/internal/models"
)

func (db *DB) CreateLedgerTask(ctx context.Context, task *models.LedgerTask) error {
	query := `INSERT INTO ledger_tasks (task_type, reservation_id, payload, status, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		task.TaskType, task.ReservationID, task.Payload, task.Status, now)
	if err != nil {
		return fmt.Errorf("failed to create ledger task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetPendingLedgerTasks returns tasks ready to run: pending ones and
// retries whose backoff has elapsed.
func (db *DB) GetPendingLedgerTasks(ctx context.Context, limit int) ([]models.LedgerTask, error) {
	query := `SELECT id, task_type, reservation_id, payload, status, retry_count, last_error, next_retry_at, created_at
              FROM ledger_tasks
              WHERE status = ? OR (status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?))
              ORDER BY id ASC
              LIMIT ?`
	rows, err := db.QueryContext(ctx, query,
		models.LedgerTaskPending, models.LedgerTaskRetry, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending ledger tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.LedgerTask
	for rows.Next() {
		var task models.LedgerTask
		if err := rows.Scan(
			&task.ID, &task.TaskType, &task.ReservationID, &task.Payload,
			&task.Status, &task.RetryCount, &task.LastError, &task.NextRetryAt, &task.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateLedgerTaskStatus records the task outcome. A retry bumps the
// attempt counter and schedules the next run.
func (db *DB) UpdateLedgerTaskStatus(ctx context.Context, id int64, status, lastError string, nextRetryAt *time.Time) error {
	var query string
	args := []any{status, lastError, nextRetryAt, id}
	if status == models.LedgerTaskRetry {
		query = `UPDATE ledger_tasks SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
	} else {
		query = `UPDATE ledger_tasks SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update ledger task %d: %w", id, err)
	}
	return nil
}
