// Package engine implements the auto-response rule engine: keyword
// matching, condition evaluation, rule selection, response resolution,
// and priority reordering.
package engine

import (
	"time"

	"github.com/linarr/linarr/internal/models"
)

// Clock supplies the current time. Injectable for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// UsageCounts holds the current trigger counts for one rule's limit bucket.
type UsageCounts struct {
	PerFriend int
	Total     int
}

// EvalContext carries everything condition evaluation needs: the
// evaluation instant, the requesting friend, and prefetched usage
// counters for limit-bearing rules. Evaluation over an EvalContext is
// pure; all I/O happens before it is built.
type EvalContext struct {
	Now    time.Time
	Friend *models.Friend

	// Usage maps rule ID strings to current trigger counts. Rules
	// without a limit condition need no entry; a missing entry reads
	// as zero counts.
	Usage map[string]UsageCounts
}
