package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// triggerCounterRepository implements TriggerCounterRepository using GORM.
type triggerCounterRepository struct {
	db *gorm.DB
}

// NewTriggerCounterRepository creates a new TriggerCounterRepository.
func NewTriggerCounterRepository(db *gorm.DB) TriggerCounterRepository {
	return &triggerCounterRepository{db: db}
}

// Count returns the current count for a bucket. A missing bucket counts as zero.
func (r *triggerCounterRepository) Count(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string) (int, error) {
	var counter models.TriggerCounter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND rule_id = ? AND friend_id = ? AND period_key = ?",
			tenantID, ruleID, friendID, periodKey).
		First(&counter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}

// IncrementIfBelow atomically increments a bucket if its count is below
// limit. The check and the increment run as one conditional UPDATE so
// concurrent triggers cannot exceed the ceiling. A missing bucket is
// created at count 1; a duplicate-key failure on that insert means a
// concurrent message created it first, in which case the conditional
// update is retried once.
func (r *triggerCounterRepository) IncrementIfBelow(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string, limit int, expiresAt time.Time) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		res := r.db.WithContext(ctx).
			Model(&models.TriggerCounter{}).
			Where("tenant_id = ? AND rule_id = ? AND friend_id = ? AND period_key = ? AND count < ?",
				tenantID, ruleID, friendID, periodKey, limit).
			Update("count", gorm.Expr("count + 1"))
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 1 {
			return true, nil
		}

		// Either the bucket does not exist yet or it is full.
		exists, err := r.bucketExists(ctx, tenantID, ruleID, friendID, periodKey)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}

		counter := &models.TriggerCounter{
			TenantID:  tenantID,
			RuleID:    ruleID,
			FriendID:  friendID,
			PeriodKey: periodKey,
			Count:     1,
			ExpiresAt: expiresAt,
		}
		err = r.db.WithContext(ctx).Create(counter).Error
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) && !isUniqueViolation(err) {
			return false, err
		}
		// Lost the insert race; retry the conditional update.
	}

	return false, nil
}

// PruneExpired deletes buckets whose expiry is before the given instant.
func (r *triggerCounterRepository) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("expires_at < ?", before).
		Delete(&models.TriggerCounter{})
	return res.RowsAffected, res.Error
}

func (r *triggerCounterRepository) bucketExists(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TriggerCounter{}).
		Where("tenant_id = ? AND rule_id = ? AND friend_id = ? AND period_key = ?",
			tenantID, ruleID, friendID, periodKey).
		Count(&count).Error
	return count > 0, err
}

// isUniqueViolation matches unique-constraint failures across the sqlite,
// mysql, and postgres drivers, which do not all map onto
// gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"UNIQUE constraint failed", "Duplicate entry", "duplicate key value"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// Ensure triggerCounterRepository implements TriggerCounterRepository.
var _ TriggerCounterRepository = (*triggerCounterRepository)(nil)
