package engine

import (
	"slices"

	"github.com/linarr/linarr/internal/models"
)

// isEligible reports whether a rule's non-keyword conditions hold for
// the evaluation context. All configured condition groups must hold;
// an absent group imposes no constraint.
func isEligible(rule *models.AutoResponseRule, ctx *EvalContext) bool {
	if !models.BoolVal(rule.IsActive) {
		return false
	}
	if rule.ValidUntil != nil && !rule.ValidUntil.After(ctx.Now) {
		return false
	}
	if !timeEligible(rule.Trigger.Time, ctx) {
		return false
	}
	if !friendEligible(rule.Trigger.Friend, ctx.Friend) {
		return false
	}
	return limitEligible(rule, ctx)
}

// timeEligible reports whether the evaluation instant falls in any of
// the configured windows (OR across windows). No windows means always
// eligible.
func timeEligible(windows []models.TimeCondition, ctx *EvalContext) bool {
	if len(windows) == 0 {
		return true
	}
	day := int(ctx.Now.Weekday())
	minute := ctx.Now.Hour()*60 + ctx.Now.Minute()

	for _, w := range windows {
		if len(w.Days) > 0 && !slices.Contains(w.Days, day) {
			continue
		}
		start, end, err := w.Window()
		if err != nil {
			// Malformed windows are rejected at save time; fail closed here.
			continue
		}
		if start <= end {
			if minute >= start && minute < end {
				return true
			}
		} else {
			// Overnight window, e.g. 22:00-06:00.
			if minute >= start || minute < end {
				return true
			}
		}
	}
	return false
}

// friendEligible evaluates tag, segment, and custom-field predicates
// against the requesting friend.
func friendEligible(cond *models.FriendCondition, friend *models.Friend) bool {
	if cond == nil {
		return true
	}
	if friend == nil {
		return false
	}

	tagIDs := friend.TagIDs()
	for _, required := range cond.RequiredTagIDs {
		if !slices.Contains(tagIDs, required) {
			return false
		}
	}
	for _, excluded := range cond.ExcludedTagIDs {
		if slices.Contains(tagIDs, excluded) {
			return false
		}
	}

	for _, required := range cond.RequiredSegmentIDs {
		if !slices.Contains(friend.SegmentIDs, required) {
			return false
		}
	}
	for _, excluded := range cond.ExcludedSegmentIDs {
		if slices.Contains(friend.SegmentIDs, excluded) {
			return false
		}
	}

	for field, want := range cond.CustomFields {
		if friend.CustomFields[field] != want {
			return false
		}
	}

	return true
}

// limitEligible checks the rule's trigger-count ceilings against the
// prefetched usage counts. The authoritative check is the atomic
// increment at fire time; this filter only avoids selecting rules that
// are already known to be exhausted.
func limitEligible(rule *models.AutoResponseRule, ctx *EvalContext) bool {
	limit := rule.Trigger.Limit
	if limit == nil {
		return true
	}

	usage := ctx.Usage[rule.ID.String()]
	if limit.PerFriend != nil && usage.PerFriend >= *limit.PerFriend {
		return false
	}
	if limit.Total != nil && usage.Total >= *limit.Total {
		return false
	}
	return true
}
