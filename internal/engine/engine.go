package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// Config holds engine limits.
type Config struct {
	// MaxPatternLength caps regex keyword patterns considered at match time.
	MaxPatternLength int
	// MaxMessageLength caps inbound message text; longer messages are
	// truncated before evaluation.
	MaxMessageLength int
}

// DefaultConfig returns engine limits matching the configuration defaults.
func DefaultConfig() Config {
	return Config{
		MaxPatternLength: models.MaxPatternLength,
		MaxMessageLength: 4096,
	}
}

// Engine decides, for an inbound message and a friend's context, which
// single rule fires and what response results. Matching is a pure
// computation over a snapshot of the tenant's rule set; all I/O happens
// at the boundary (loading rules and the friend, counters, logging).
type Engine struct {
	rules    repository.RuleRepository
	friends  repository.FriendRepository
	counters repository.TriggerCounterRepository
	logs     repository.ResponseLogRepository

	clock   Clock
	logger  *slog.Logger
	matcher *matcher
	cfg     Config
}

// New creates a new Engine.
func New(
	rules repository.RuleRepository,
	friends repository.FriendRepository,
	counters repository.TriggerCounterRepository,
	logs repository.ResponseLogRepository,
	cfg Config,
) *Engine {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultConfig().MaxMessageLength
	}
	return &Engine{
		rules:    rules,
		friends:  friends,
		counters: counters,
		logs:     logs,
		clock:    SystemClock(),
		logger:   slog.Default(),
		matcher:  newMatcher(cfg.MaxPatternLength),
		cfg:      cfg,
	}
}

// WithClock sets the clock used for evaluation instants.
func (e *Engine) WithClock(clock Clock) *Engine {
	e.clock = clock
	return e
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// HandleIncomingMessage matches an inbound text message against the
// tenant's rule set and returns the resolved response payload, or nil
// when no rule matches. Post-match actions are executed against the
// friend store, trigger counters are incremented atomically, and a
// response log row is written for every handled message.
func (e *Engine) HandleIncomingMessage(ctx context.Context, tenantID, friendID models.ULID, messageText string) (*ResponsePayload, error) {
	start := e.clock.Now()

	friend, err := e.friends.GetByID(ctx, friendID)
	if err != nil {
		return nil, fmt.Errorf("loading friend: %w", err)
	}
	if friend == nil {
		return nil, ErrFriendNotFound
	}

	rules, err := e.rules.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	messageText = truncate(messageText, e.cfg.MaxMessageLength)

	evalCtx := &EvalContext{
		Now:    start,
		Friend: friend,
	}
	evalCtx.Usage, err = e.fetchUsage(ctx, tenantID, friend, rules, start)
	if err != nil {
		return nil, fmt.Errorf("loading trigger counters: %w", err)
	}

	// Selection retries when the atomic counter increment reports a
	// limit reached by a concurrent message; the loser falls through
	// to the next-best rule.
	excluded := make(map[string]bool)
	for {
		sel := e.selectRule(rules, messageText, evalCtx, excluded)
		if sel == nil {
			e.writeLog(ctx, &models.ResponseLog{
				TenantID:        tenantID,
				FriendID:        friendID,
				ReceivedMessage: messageText,
				Status:          models.ResponseStatusNoMatch,
				ResponseTimeMs:  e.sinceMs(start),
			})
			return nil, nil
		}

		payload, err := resolveResponse(sel)
		if err != nil {
			e.logger.Warn("response resolution failed",
				slog.String("rule_id", sel.Rule.ID.String()),
				slog.String("error", err.Error()),
			)
			excluded[sel.Rule.ID.String()] = true
			continue
		}

		allowed, err := e.recordTrigger(ctx, tenantID, friend, sel.Rule, start)
		if err != nil {
			return nil, fmt.Errorf("recording trigger: %w", err)
		}
		if !allowed {
			excluded[sel.Rule.ID.String()] = true
			continue
		}

		logRow := &models.ResponseLog{
			TenantID:        tenantID,
			FriendID:        friendID,
			RuleID:          &sel.Rule.ID,
			MatchedKeyword:  sel.MatchedKeyword,
			ReceivedMessage: messageText,
			SentResponse:    payload.Describe(),
			Status:          models.ResponseStatusSuccess,
		}

		if err := e.executeActions(ctx, friend, sel.Rule.Actions); err != nil {
			logRow.Status = models.ResponseStatusFailed
			logRow.ErrorMessage = err.Error()
			e.logger.Error("post-match actions failed",
				slog.String("rule_id", sel.Rule.ID.String()),
				slog.String("friend_id", friendID.String()),
				slog.String("error", err.Error()),
			)
		}

		logRow.ResponseTimeMs = e.sinceMs(start)
		e.writeLog(ctx, logRow)

		e.logger.Info("rule matched",
			slog.String("tenant_id", tenantID.String()),
			slog.String("rule_id", sel.Rule.ID.String()),
			slog.String("message_text", messageText),
			slog.Int64("response_time_ms", logRow.ResponseTimeMs),
		)

		return payload, nil
	}
}

// Reorder moves a rule within the tenant's priority list and persists
// the dense reassigned priorities in a single transaction. A conflict
// with a concurrent reorder surfaces as repository.ErrConflict; the
// caller should re-fetch the current order and resubmit.
func (e *Engine) Reorder(ctx context.Context, tenantID models.ULID, fromIndex, toIndex int) error {
	rules, err := e.rules.GetByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	reordered, err := ReorderRules(rules, fromIndex, toIndex)
	if err != nil {
		return err
	}
	if fromIndex == toIndex {
		return nil
	}

	updates := make([]repository.PriorityUpdate, 0, len(reordered))
	for _, rule := range reordered {
		updates = append(updates, repository.PriorityUpdate{ID: rule.ID, Priority: rule.Priority})
	}

	if err := e.rules.UpdatePriorities(ctx, tenantID, updates); err != nil {
		return fmt.Errorf("persisting priorities: %w", err)
	}
	return nil
}

// fetchUsage prefetches trigger counts for every limit-bearing rule so
// eligibility evaluation stays pure. The counts are an advisory filter;
// the authoritative check is the conditional increment at fire time.
func (e *Engine) fetchUsage(ctx context.Context, tenantID models.ULID, friend *models.Friend, rules []*models.AutoResponseRule, now time.Time) (map[string]UsageCounts, error) {
	usage := make(map[string]UsageCounts)

	for _, rule := range rules {
		limit := rule.Trigger.Limit
		if limit == nil {
			continue
		}
		periodKey := models.PeriodKeyFor(limit.Period, now)

		var counts UsageCounts
		var err error
		if limit.PerFriend != nil {
			counts.PerFriend, err = e.counters.Count(ctx, tenantID, rule.ID, friend.ID.String(), periodKey)
			if err != nil {
				return nil, err
			}
		}
		if limit.Total != nil {
			counts.Total, err = e.counters.Count(ctx, tenantID, rule.ID, "", periodKey)
			if err != nil {
				return nil, err
			}
		}
		usage[rule.ID.String()] = counts
	}

	return usage, nil
}

// recordTrigger increments the rule's limit buckets atomically. It
// returns false when either ceiling has been reached, which can happen
// even after a successful eligibility check if a concurrent message
// claimed the last slot first.
func (e *Engine) recordTrigger(ctx context.Context, tenantID models.ULID, friend *models.Friend, rule *models.AutoResponseRule, now time.Time) (bool, error) {
	limit := rule.Trigger.Limit
	if limit == nil {
		return true, nil
	}

	periodKey := models.PeriodKeyFor(limit.Period, now)
	expiresAt := models.PeriodExpiryFor(limit.Period, now)

	if limit.PerFriend != nil {
		ok, err := e.counters.IncrementIfBelow(ctx, tenantID, rule.ID, friend.ID.String(), periodKey, *limit.PerFriend, expiresAt)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if limit.Total != nil {
		ok, err := e.counters.IncrementIfBelow(ctx, tenantID, rule.ID, "", periodKey, *limit.Total, expiresAt)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// executeActions applies the rule's post-match side effects to the friend.
func (e *Engine) executeActions(ctx context.Context, friend *models.Friend, actions []models.RuleAction) error {
	for _, action := range actions {
		var err error
		switch action.Type {
		case models.ActionAddTag:
			var tagID models.ULID
			if tagID, err = models.ParseULID(action.TagID); err == nil {
				err = e.friends.AddTag(ctx, friend.ID, tagID)
			}
		case models.ActionRemoveTag:
			var tagID models.ULID
			if tagID, err = models.ParseULID(action.TagID); err == nil {
				err = e.friends.RemoveTag(ctx, friend.ID, tagID)
			}
		case models.ActionUpdateField:
			err = e.friends.UpdateCustomField(ctx, friend.ID, action.Field, action.Value)
		default:
			err = fmt.Errorf("unknown action type %q", action.Type)
		}
		if err != nil {
			return fmt.Errorf("executing %s action: %w", action.Type, err)
		}
	}
	return nil
}

// writeLog persists a response log row. Log failures are reported but
// never fail message handling.
func (e *Engine) writeLog(ctx context.Context, row *models.ResponseLog) {
	if err := e.logs.Create(ctx, row); err != nil {
		e.logger.Warn("writing response log failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) sinceMs(start time.Time) int64 {
	return e.clock.Now().Sub(start).Milliseconds()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
