package engine

import (
	"log/slog"

	"github.com/linarr/linarr/internal/models"
)

// Selection is the outcome of picking a rule for an inbound message.
type Selection struct {
	Rule           *models.AutoResponseRule
	MatchedKeyword string
}

// selectRule picks the winning rule for a message: candidates are
// filtered through condition eligibility and keyword matching, then the
// highest-priority match wins. Ties (which the dense reorder policy
// should prevent) break on earlier CreatedAt, then smaller ID. Returns
// nil when no rule matches.
//
// Structurally invalid rules are skipped and logged so one bad rule
// cannot block the rest of the tenant's rule set. Validation runs only
// after a keyword match, so a misconfigured rule stays quiet until a
// message would actually hit it.
func (e *Engine) selectRule(rules []*models.AutoResponseRule, message string, ctx *EvalContext, excluded map[string]bool) *Selection {
	var best *Selection

	for _, rule := range rules {
		if excluded[rule.ID.String()] {
			continue
		}
		if !isEligible(rule, ctx) {
			continue
		}
		keyword, ok := e.matcher.ruleMatches(message, rule)
		if !ok {
			continue
		}
		if err := rule.Response.Validate(); err != nil {
			cfgErr := &ConfigurationError{RuleID: rule.ID.String(), Reason: err.Error()}
			e.logger.Warn("skipping misconfigured rule",
				slog.String("rule_id", rule.ID.String()),
				slog.String("error", cfgErr.Error()),
			)
			continue
		}
		if best == nil || wins(rule, best.Rule) {
			best = &Selection{Rule: rule, MatchedKeyword: keyword}
		}
	}

	return best
}

// wins reports whether a takes precedence over b: higher priority,
// then earlier creation, then smaller ID.
func wins(a, b *models.AutoResponseRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
