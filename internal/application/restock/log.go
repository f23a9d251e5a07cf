package restock

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"assetverse-backend/internal/application/inventory"
	"assetverse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTaskNotFound = errors.New("Restock task not found")

// Key prefixes for the two sources of owed stock.
const (
	KeyReturn      = "return:"
	KeyUndoApprove = "undo-approve:"
)

// ReturnKey is the log key for the +1 owed by a returned assignment.
func ReturnKey(assignmentID uuid.UUID) string {
	return KeyReturn + assignmentID.String()
}

// UndoApproveKey is the log key for the +1 owed by an approval attempt that could not
// complete. A request can be retried after a failed approval, so each attempt has its own key.
func UndoApproveKey(requestID uuid.UUID, attempt string) string {
	return KeyUndoApprove + requestID.String() + ":" + attempt
}

// Log is the durable record of +1 credits owed to assets. Each key is credited at most once.
type Log struct {
	DB        *gorm.DB
	Inventory *inventory.Store
}

// Enqueue records that assetID is owed one unit under key. Enqueueing an existing key is a
// no-op and returns the stored task.
func (l *Log) Enqueue(ctx context.Context, key string, assetID uuid.UUID, details map[string]interface{}) (*domain.RestockTask, error) {
	task := &domain.RestockTask{
		Key:     key,
		AssetID: assetID,
		Status:  domain.RestockPending,
	}
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return nil, err
		}
		task.Details = datatypes.JSON(b)
	}
	if err := l.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(task).Error; err != nil {
		return nil, err
	}
	return l.Get(ctx, key)
}

// Get loads a task by key.
func (l *Log) Get(ctx context.Context, key string) (*domain.RestockTask, error) {
	var task domain.RestockTask
	if err := l.DB.WithContext(ctx).Where("task_key = ?", key).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Apply credits the task's asset if the task is still pending. Claiming the task and the
// increment commit together, so concurrent or repeated calls credit once. A task whose
// asset is gone or already full is marked skipped. A failed attempt leaves the task pending
// with its attempt count and error recorded.
func (l *Log) Apply(ctx context.Context, key string) (string, error) {
	var status string
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task domain.RestockTask
		if err := tx.Where("task_key = ?", key).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&domain.RestockTask{}).
			Where("task_key = ? AND status = ?", key, domain.RestockPending).
			Updates(map[string]interface{}{
				"status":     domain.RestockApplied,
				"applied_at": now,
				"attempts":   gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			status = task.Status
			return nil
		}

		err := l.Inventory.WithTx(tx).Increment(ctx, task.AssetID)
		switch {
		case err == nil:
			status = domain.RestockApplied
			return nil
		case errors.Is(err, inventory.ErrAssetNotFound), errors.Is(err, inventory.ErrAtCapacity):
			status = domain.RestockSkipped
			log.Warn().Str("task_key", key).Str("asset_id", task.AssetID.String()).Err(err).
				Msg("restock: task skipped")
			return tx.Model(&domain.RestockTask{}).Where("task_key = ?", key).
				Updates(map[string]interface{}{
					"status":     domain.RestockSkipped,
					"last_error": err.Error(),
				}).Error
		default:
			return err
		}
	})
	if err != nil && !errors.Is(err, ErrTaskNotFound) {
		if recErr := l.recordFailure(ctx, key, err); recErr != nil {
			log.Error().Str("task_key", key).Err(recErr).Msg("restock: could not record failed attempt")
		}
	}
	return status, err
}

func (l *Log) recordFailure(ctx context.Context, key string, cause error) error {
	return l.DB.WithContext(ctx).Model(&domain.RestockTask{}).
		Where("task_key = ? AND status = ?", key, domain.RestockPending).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error
}

// Pending returns up to limit pending tasks with fewer than maxAttempts attempts, oldest first.
// maxAttempts <= 0 means no attempt limit.
func (l *Log) Pending(ctx context.Context, limit, maxAttempts int) ([]domain.RestockTask, error) {
	q := l.DB.WithContext(ctx).Where("status = ?", domain.RestockPending)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	var tasks []domain.RestockTask
	if err := q.Order("task_id ASC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountPending counts every pending task, including ones past the attempt limit.
func (l *Log) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := l.DB.WithContext(ctx).Model(&domain.RestockTask{}).
		Where("status = ?", domain.RestockPending).Count(&n).Error
	return n, err
}

// CountExhausted counts pending tasks the relay no longer retries.
func (l *Log) CountExhausted(ctx context.Context, maxAttempts int) (int64, error) {
	var n int64
	err := l.DB.WithContext(ctx).Model(&domain.RestockTask{}).
		Where("status = ? AND attempts >= ?", domain.RestockPending, maxAttempts).Count(&n).Error
	return n, err
}
