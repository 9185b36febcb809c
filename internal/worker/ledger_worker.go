package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/domain"
	"deskhub/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ledgerQueueKey      = "ledger:queue"
	ledgerDeadLetterKey = "ledger:deadletter"
)

// ledgerTaskPayload is stored in LedgerTask.Payload as JSON.
type ledgerTaskPayload struct {
	Reservation *models.Reservation `json:"reservation,omitempty"`
	Status      string              `json:"status,omitempty"`
}

// LedgerWorker applies queued reservation writes to the external ledger.
// Every task is persisted first; Redis (when available) and an in-memory
// channel only shorten the pickup latency over the database poll.
type LedgerWorker struct {
	db           *database.DB
	ledger       domain.LedgerWriter
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.LedgerTask
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
}

func NewLedgerWorker(db *database.DB, ledger domain.LedgerWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *LedgerWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &LedgerWorker{
		db:           db,
		ledger:       ledger,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan models.LedgerTask, 128),
		pollInterval: 2 * time.Second,
		batchSize:    20,
		logger:       logger,
	}
}

// EnqueueAppend schedules a new reservation row for the ledger.
func (w *LedgerWorker) EnqueueAppend(ctx context.Context, res *models.Reservation) error {
	if res == nil || res.ID == 0 {
		return errors.New("reservation id is required")
	}
	return w.enqueue(ctx, models.LedgerTaskAppend, res.ID, ledgerTaskPayload{Reservation: res})
}

// EnqueueStatus schedules a status cell rewrite for an existing row.
func (w *LedgerWorker) EnqueueStatus(ctx context.Context, reservationID int64, status string) error {
	if reservationID == 0 || status == "" {
		return errors.New("reservation id and status are required")
	}
	return w.enqueue(ctx, models.LedgerTaskStatus, reservationID, ledgerTaskPayload{Status: status})
}

func (w *LedgerWorker) enqueue(ctx context.Context, taskType string, reservationID int64, payload ledgerTaskPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	task := models.LedgerTask{
		TaskType:      taskType,
		ReservationID: reservationID,
		Payload:       string(raw),
		Status:        models.LedgerTaskPending,
	}
	if err := w.db.CreateLedgerTask(ctx, &task); err != nil {
		return err
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		// Queue full; the database poll will pick it up.
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left to polling")
	}
	return nil
}

// Start runs the worker loop until the context is cancelled.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("ledger worker started")
	defer w.logger.Info().Msg("ledger worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if task, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &task)
			continue
		}
		if task, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &task)
			continue
		}

		tasks, err := w.db.GetPendingLedgerTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending ledger tasks error")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}
		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *LedgerWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *LedgerWorker) tryLocalQueue() (models.LedgerTask, bool) {
	select {
	case task := <-w.queue:
		return task, true
	default:
		return models.LedgerTask{}, false
	}
}

func (w *LedgerWorker) tryRedis(ctx context.Context) (models.LedgerTask, bool) {
	if w.redis == nil {
		return models.LedgerTask{}, false
	}

	res, err := w.redis.BRPop(ctx, time.Second, ledgerQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("redis BRPOP error")
		}
		return models.LedgerTask{}, false
	}
	if len(res) != 2 {
		return models.LedgerTask{}, false
	}

	var task models.LedgerTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis ledger task error")
		return models.LedgerTask{}, false
	}
	return task, true
}

func (w *LedgerWorker) processTask(ctx context.Context, task *models.LedgerTask) {
	var payload ledgerTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("failed to decode payload: %w", err))
		return
	}

	if err := w.applyTask(ctx, task, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateLedgerTaskStatus(ctx, task.ID, models.LedgerTaskCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark ledger task completed error")
	}
}

func (w *LedgerWorker) applyTask(ctx context.Context, task *models.LedgerTask, payload ledgerTaskPayload) error {
	switch task.TaskType {
	case models.LedgerTaskAppend:
		if payload.Reservation == nil {
			return errors.New("reservation payload missing")
		}
		return w.ledger.AppendReservation(ctx, payload.Reservation)
	case models.LedgerTaskStatus:
		if payload.Status == "" {
			return errors.New("status payload missing")
		}
		return w.ledger.UpdateReservationStatus(ctx, task.ReservationID, payload.Status)
	default:
		return fmt.Errorf("unknown task type %q", task.TaskType)
	}
}

func (w *LedgerWorker) retryOrFail(ctx context.Context, task *models.LedgerTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateLedgerTaskStatus(ctx, task.ID, models.LedgerTaskRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark ledger task retry error")
	}
}

func (w *LedgerWorker) failTask(ctx context.Context, task *models.LedgerTask, cause error) {
	w.logger.Error().Err(cause).
		Int64("task_id", task.ID).
		Int64("reservation_id", task.ReservationID).
		Msg("ledger task failed permanently")

	if err := w.db.UpdateLedgerTaskStatus(ctx, task.ID, models.LedgerTaskFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark ledger task failed error")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *LedgerWorker) pushRedis(ctx context.Context, task models.LedgerTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, ledgerQueueKey, data).Err()
}

func (w *LedgerWorker) pushDeadLetter(ctx context.Context, task *models.LedgerTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode dead letter error")
		return
	}
	if err := w.redis.LPush(ctx, ledgerDeadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead letter push error")
	}
}
