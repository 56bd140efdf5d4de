package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// responseLogRepository implements ResponseLogRepository using GORM.
type responseLogRepository struct {
	db *gorm.DB
}

// NewResponseLogRepository creates a new ResponseLogRepository.
func NewResponseLogRepository(db *gorm.DB) ResponseLogRepository {
	return &responseLogRepository{db: db}
}

// Create creates a new response log row.
func (r *responseLogRepository) Create(ctx context.Context, log *models.ResponseLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("validating response log: %w", err)
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// GetByTenant retrieves recent log rows for a tenant, newest first.
func (r *responseLogRepository) GetByTenant(ctx context.Context, tenantID models.ULID, limit, offset int) ([]*models.ResponseLog, int64, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ResponseLog{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*models.ResponseLog
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CountByDay returns per-day totals grouped by status since the given instant.
// Day bucketing uses strftime, which works on the sqlite default backend;
// mysql and postgres would need a dialect-specific expression here.
func (r *responseLogRepository) CountByDay(ctx context.Context, tenantID models.ULID, since time.Time) ([]DayCount, error) {
	var counts []DayCount
	if err := r.db.WithContext(ctx).
		Model(&models.ResponseLog{}).
		Select("strftime('%Y-%m-%d', created_at) AS day, status, COUNT(*) AS total").
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Group("day, status").
		Order("day ASC").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// CountByRule returns per-rule totals since the given instant.
func (r *responseLogRepository) CountByRule(ctx context.Context, tenantID models.ULID, since time.Time) ([]RuleCount, error) {
	var counts []RuleCount
	if err := r.db.WithContext(ctx).
		Model(&models.ResponseLog{}).
		Select("rule_id, COUNT(*) AS total").
		Where("tenant_id = ? AND created_at >= ? AND rule_id IS NOT NULL", tenantID, since).
		Group("rule_id").
		Order("total DESC").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// PruneBefore deletes log rows created before the given instant.
func (r *responseLogRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", before).
		Delete(&models.ResponseLog{})
	return res.RowsAffected, res.Error
}

// Ensure responseLogRepository implements ResponseLogRepository.
var _ ResponseLogRepository = (*responseLogRepository)(nil)
