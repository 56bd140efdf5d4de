package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// ruleRepository implements RuleRepository using GORM.
type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

// Create creates a new rule.
func (r *ruleRepository) Create(ctx context.Context, rule *models.AutoResponseRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating rule: %w", err)
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

// GetByID retrieves a rule by ID.
func (r *ruleRepository) GetByID(ctx context.Context, id models.ULID) (*models.AutoResponseRule, error) {
	var rule models.AutoResponseRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// GetByTenant retrieves all rules for a tenant, highest priority first.
func (r *ruleRepository) GetByTenant(ctx context.Context, tenantID models.ULID) ([]*models.AutoResponseRule, error) {
	var rules []*models.AutoResponseRule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActive retrieves active rules for a tenant, highest priority first.
// Rules past their valid_until are still returned; the engine evaluates
// expiry against its own clock so tests can pin the instant.
func (r *ruleRepository) ListActive(ctx context.Context, tenantID models.ULID) ([]*models.AutoResponseRule, error) {
	var rules []*models.AutoResponseRule
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("is_active = ?", true).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Update updates an existing rule.
func (r *ruleRepository) Update(ctx context.Context, rule *models.AutoResponseRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating rule: %w", err)
	}
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete soft-deletes a rule by ID.
func (r *ruleRepository) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Delete(&models.AutoResponseRule{}, "id = ?", id).Error
}

// UpdatePriorities applies all priority updates for a tenant in a single
// transaction. Every update must hit exactly one row; anything else
// means the rule set changed underneath the caller and the whole batch
// rolls back with ErrConflict.
func (r *ruleRepository) UpdatePriorities(ctx context.Context, tenantID models.ULID, updates []PriorityUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AutoResponseRule{}).
			Where("tenant_id = ?", tenantID).
			Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(updates)) {
			return fmt.Errorf("%w: rule set has %d rules, reorder carries %d", ErrConflict, count, len(updates))
		}

		for _, u := range updates {
			res := tx.Model(&models.AutoResponseRule{}).
				Where("id = ? AND tenant_id = ?", u.ID, tenantID).
				Update("priority", u.Priority)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: rule %s no longer exists", ErrConflict, u.ID)
			}
		}
		return nil
	})
}

// Count returns the number of rules for a tenant.
func (r *ruleRepository) Count(ctx context.Context, tenantID models.ULID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AutoResponseRule{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure ruleRepository implements RuleRepository.
var _ RuleRepository = (*ruleRepository)(nil)
