package models

import "time"

// Ledger task types.
const (
	LedgerTaskAppend = "append"
	LedgerTaskStatus = "update_status"
)

// Ledger task statuses.
const (
	LedgerTaskPending   = "pending"
	LedgerTaskRetry     = "retry"
	LedgerTaskCompleted = "completed"
	LedgerTaskFailed    = "failed"
)

// LedgerTask is one queued write to the external reservation ledger. Tasks
// are persisted so a restart never loses a write; the queue only speeds up
// pickup.
type LedgerTask struct {
	ID            int64
	TaskType      string
	ReservationID int64
	Payload       string
	Status        string
	RetryCount    int
	LastError     string
	NextRetryAt   *time.Time
	CreatedAt     time.Time
}
