package models

import (
	"fmt"
	"time"
)

// TriggerCounter tracks how many times a rule has fired within a period
// bucket, either per friend or across the tenant (FriendID empty).
// Increments happen through a single conditional update so the limit
// check and the increment cannot race.
type TriggerCounter struct {
	BaseModel

	TenantID ULID `gorm:"type:varchar(26);not null;uniqueIndex:idx_trigger_counters_bucket,priority:1" json:"tenant_id"`
	RuleID   ULID `gorm:"type:varchar(26);not null;uniqueIndex:idx_trigger_counters_bucket,priority:2" json:"rule_id"`

	// FriendID is empty for tenant-wide (total) counters.
	FriendID string `gorm:"size:26;not null;default:'';uniqueIndex:idx_trigger_counters_bucket,priority:3" json:"friend_id,omitempty"`

	// PeriodKey identifies the period bucket, e.g. "2026-08-31",
	// "2026-W35", "2026-08".
	PeriodKey string `gorm:"size:16;not null;uniqueIndex:idx_trigger_counters_bucket,priority:4" json:"period_key"`

	// Count is the number of triggers recorded in this bucket.
	Count int `gorm:"not null;default:0" json:"count"`

	// ExpiresAt marks when the bucket can be pruned.
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName returns the table name for the TriggerCounter model.
func (TriggerCounter) TableName() string {
	return "trigger_counters"
}

// PeriodKeyFor returns the bucket key for a period at the given instant.
func PeriodKeyFor(period LimitPeriod, now time.Time) string {
	switch period {
	case LimitPeriodWeek:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case LimitPeriodMonth:
		return now.Format("2006-01")
	default:
		return now.Format("2006-01-02")
	}
}

// PeriodExpiryFor returns when a bucket for the period can be pruned.
// Buckets are kept one full period past their end.
func PeriodExpiryFor(period LimitPeriod, now time.Time) time.Time {
	switch period {
	case LimitPeriodWeek:
		return now.AddDate(0, 0, 14)
	case LimitPeriodMonth:
		return now.AddDate(0, 2, 0)
	default:
		return now.AddDate(0, 0, 2)
	}
}
