// Package repository defines data access interfaces for linarr entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/linarr/linarr/internal/models"
)

// ErrConflict indicates a write lost to a concurrent modification.
// Callers should re-fetch current state and resubmit.
var ErrConflict = errors.New("conflicting concurrent modification")

// PriorityUpdate assigns a new priority to one rule.
type PriorityUpdate struct {
	ID       models.ULID
	Priority int
}

// RuleRepository defines operations for auto-response rule persistence.
type RuleRepository interface {
	// Create creates a new rule.
	Create(ctx context.Context, rule *models.AutoResponseRule) error
	// GetByID retrieves a rule by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.AutoResponseRule, error)
	// GetByTenant retrieves all rules for a tenant, highest priority first.
	GetByTenant(ctx context.Context, tenantID models.ULID) ([]*models.AutoResponseRule, error)
	// ListActive retrieves active rules for a tenant, highest priority first.
	ListActive(ctx context.Context, tenantID models.ULID) ([]*models.AutoResponseRule, error)
	// Update updates an existing rule.
	Update(ctx context.Context, rule *models.AutoResponseRule) error
	// Delete soft-deletes a rule by ID.
	Delete(ctx context.Context, id models.ULID) error
	// UpdatePriorities applies all priority updates for a tenant in a
	// single transaction. Either every update applies or none do.
	// Returns ErrConflict if the rule set changed underneath the caller.
	UpdatePriorities(ctx context.Context, tenantID models.ULID, updates []PriorityUpdate) error
	// Count returns the number of rules for a tenant.
	Count(ctx context.Context, tenantID models.ULID) (int64, error)
}

// FriendRepository defines operations for friend persistence.
type FriendRepository interface {
	// Create creates a new friend.
	Create(ctx context.Context, friend *models.Friend) error
	// GetByID retrieves a friend by ID with tags preloaded.
	GetByID(ctx context.Context, id models.ULID) (*models.Friend, error)
	// GetByLineUserID retrieves a friend by LINE user ID with tags preloaded.
	GetByLineUserID(ctx context.Context, tenantID models.ULID, lineUserID string) (*models.Friend, error)
	// Update updates an existing friend.
	Update(ctx context.Context, friend *models.Friend) error
	// AddTag attaches a tag to a friend. Adding an existing tag is a no-op.
	AddTag(ctx context.Context, friendID, tagID models.ULID) error
	// RemoveTag detaches a tag from a friend.
	RemoveTag(ctx context.Context, friendID, tagID models.ULID) error
	// UpdateCustomField sets one custom field on a friend.
	UpdateCustomField(ctx context.Context, friendID models.ULID, field, value string) error
}

// TriggerCounterRepository defines operations for trigger-count buckets.
type TriggerCounterRepository interface {
	// Count returns the current count for a bucket. A missing bucket counts as zero.
	// friendID is empty for tenant-wide (total) buckets.
	Count(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string) (int, error)
	// IncrementIfBelow atomically increments a bucket if its count is
	// below limit. Returns false when the limit has been reached. The
	// check and increment happen in one conditional update so concurrent
	// triggers cannot exceed the ceiling.
	IncrementIfBelow(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string, limit int, expiresAt time.Time) (bool, error)
	// PruneExpired deletes buckets whose expiry is before the given instant.
	PruneExpired(ctx context.Context, before time.Time) (int64, error)
}

// ResponseLogRepository defines operations for response log persistence.
type ResponseLogRepository interface {
	// Create creates a new response log row.
	Create(ctx context.Context, log *models.ResponseLog) error
	// GetByTenant retrieves recent log rows for a tenant, newest first.
	GetByTenant(ctx context.Context, tenantID models.ULID, limit, offset int) ([]*models.ResponseLog, int64, error)
	// CountByDay returns per-day totals grouped by status since the given instant.
	CountByDay(ctx context.Context, tenantID models.ULID, since time.Time) ([]DayCount, error)
	// CountByRule returns per-rule totals since the given instant.
	CountByRule(ctx context.Context, tenantID models.ULID, since time.Time) ([]RuleCount, error)
	// PruneBefore deletes log rows created before the given instant.
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

// DayCount is a per-day response total.
type DayCount struct {
	Day    string `json:"day"`
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

// RuleCount is a per-rule response total.
type RuleCount struct {
	RuleID string `json:"rule_id"`
	Total  int64  `json:"total"`
}

// TenantRepository defines operations for tenant persistence.
type TenantRepository interface {
	// Create creates a new tenant.
	Create(ctx context.Context, tenant *models.Tenant) error
	// GetByID retrieves a tenant by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Tenant, error)
	// GetAll retrieves all tenants.
	GetAll(ctx context.Context) ([]*models.Tenant, error)
	// Update updates an existing tenant.
	Update(ctx context.Context, tenant *models.Tenant) error
}
