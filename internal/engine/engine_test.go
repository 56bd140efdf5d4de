package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeRuleRepo struct {
	rules           []*models.AutoResponseRule
	updatesByTenant map[string][]repository.PriorityUpdate
	updateErr       error
}

var _ repository.RuleRepository = (*fakeRuleRepo)(nil)

func (r *fakeRuleRepo) Create(ctx context.Context, rule *models.AutoResponseRule) error {
	r.rules = append(r.rules, rule)
	return nil
}

func (r *fakeRuleRepo) GetByID(ctx context.Context, id models.ULID) (*models.AutoResponseRule, error) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, nil
}

func (r *fakeRuleRepo) GetByTenant(ctx context.Context, tenantID models.ULID) ([]*models.AutoResponseRule, error) {
	var out []*models.AutoResponseRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) ListActive(ctx context.Context, tenantID models.ULID) ([]*models.AutoResponseRule, error) {
	var out []*models.AutoResponseRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID && models.BoolVal(rule.IsActive) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Update(ctx context.Context, rule *models.AutoResponseRule) error { return nil }
func (r *fakeRuleRepo) Delete(ctx context.Context, id models.ULID) error               { return nil }

func (r *fakeRuleRepo) UpdatePriorities(ctx context.Context, tenantID models.ULID, updates []repository.PriorityUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.updatesByTenant == nil {
		r.updatesByTenant = make(map[string][]repository.PriorityUpdate)
	}
	r.updatesByTenant[tenantID.String()] = updates
	return nil
}

func (r *fakeRuleRepo) Count(ctx context.Context, tenantID models.ULID) (int64, error) {
	return int64(len(r.rules)), nil
}

type tagOp struct {
	op     string
	tagID  string
	field  string
	value  string
	friend string
}

type fakeFriendRepo struct {
	friends   map[string]*models.Friend
	ops       []tagOp
	actionErr error
}

var _ repository.FriendRepository = (*fakeFriendRepo)(nil)

func (r *fakeFriendRepo) Create(ctx context.Context, friend *models.Friend) error { return nil }

func (r *fakeFriendRepo) GetByID(ctx context.Context, id models.ULID) (*models.Friend, error) {
	return r.friends[id.String()], nil
}

func (r *fakeFriendRepo) GetByLineUserID(ctx context.Context, tenantID models.ULID, lineUserID string) (*models.Friend, error) {
	for _, f := range r.friends {
		if f.TenantID == tenantID && f.LineUserID == lineUserID {
			return f, nil
		}
	}
	return nil, nil
}

func (r *fakeFriendRepo) Update(ctx context.Context, friend *models.Friend) error { return nil }

func (r *fakeFriendRepo) AddTag(ctx context.Context, friendID, tagID models.ULID) error {
	if r.actionErr != nil {
		return r.actionErr
	}
	r.ops = append(r.ops, tagOp{op: "add_tag", tagID: tagID.String(), friend: friendID.String()})
	return nil
}

func (r *fakeFriendRepo) RemoveTag(ctx context.Context, friendID, tagID models.ULID) error {
	if r.actionErr != nil {
		return r.actionErr
	}
	r.ops = append(r.ops, tagOp{op: "remove_tag", tagID: tagID.String(), friend: friendID.String()})
	return nil
}

func (r *fakeFriendRepo) UpdateCustomField(ctx context.Context, friendID models.ULID, field, value string) error {
	if r.actionErr != nil {
		return r.actionErr
	}
	r.ops = append(r.ops, tagOp{op: "update_field", field: field, value: value, friend: friendID.String()})
	return nil
}

type fakeCounterRepo struct {
	counts map[string]int

	// staleReads makes Count report zero regardless of actual counts,
	// simulating a concurrent increment landing between the usage
	// prefetch and the conditional increment.
	staleReads bool
}

var _ repository.TriggerCounterRepository = (*fakeCounterRepo)(nil)

func counterKey(tenantID, ruleID models.ULID, friendID, periodKey string) string {
	return fmt.Sprintf("%s|%s|%s|%s", tenantID, ruleID, friendID, periodKey)
}

func (r *fakeCounterRepo) Count(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string) (int, error) {
	if r.staleReads {
		return 0, nil
	}
	return r.counts[counterKey(tenantID, ruleID, friendID, periodKey)], nil
}

func (r *fakeCounterRepo) IncrementIfBelow(ctx context.Context, tenantID, ruleID models.ULID, friendID, periodKey string, limit int, expiresAt time.Time) (bool, error) {
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	key := counterKey(tenantID, ruleID, friendID, periodKey)
	if r.counts[key] >= limit {
		return false, nil
	}
	r.counts[key]++
	return true, nil
}

func (r *fakeCounterRepo) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeLogRepo struct {
	rows []*models.ResponseLog
}

var _ repository.ResponseLogRepository = (*fakeLogRepo)(nil)

func (r *fakeLogRepo) Create(ctx context.Context, log *models.ResponseLog) error {
	r.rows = append(r.rows, log)
	return nil
}

func (r *fakeLogRepo) GetByTenant(ctx context.Context, tenantID models.ULID, limit, offset int) ([]*models.ResponseLog, int64, error) {
	return r.rows, int64(len(r.rows)), nil
}

func (r *fakeLogRepo) CountByDay(ctx context.Context, tenantID models.ULID, since time.Time) ([]repository.DayCount, error) {
	return nil, nil
}

func (r *fakeLogRepo) CountByRule(ctx context.Context, tenantID models.ULID, since time.Time) ([]repository.RuleCount, error) {
	return nil, nil
}

func (r *fakeLogRepo) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	engine   *Engine
	rules    *fakeRuleRepo
	friends  *fakeFriendRepo
	counters *fakeCounterRepo
	logs     *fakeLogRepo

	tenantID models.ULID
	friend   *models.Friend
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tenantID := models.NewULID()
	friend := &models.Friend{
		BaseModel:  models.BaseModel{ID: models.NewULID()},
		TenantID:   tenantID,
		LineUserID: "U1234",
	}

	f := &fixture{
		rules:    &fakeRuleRepo{},
		friends:  &fakeFriendRepo{friends: map[string]*models.Friend{friend.ID.String(): friend}},
		counters: &fakeCounterRepo{},
		logs:     &fakeLogRepo{},
		tenantID: tenantID,
		friend:   friend,
		now:      time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC),
	}
	f.engine = New(f.rules, f.friends, f.counters, f.logs, DefaultConfig()).
		WithClock(fixedClock{t: f.now})
	return f
}

func (f *fixture) addRule(name string, priority int, mutate ...func(r *models.AutoResponseRule)) *models.AutoResponseRule {
	rule := &models.AutoResponseRule{
		BaseModel: models.BaseModel{
			ID:        models.NewULID(),
			CreatedAt: f.now.Add(-time.Duration(len(f.rules.rules)+1) * time.Hour),
		},
		TenantID: f.tenantID,
		Name:     name,
		Priority: priority,
		Keywords: []models.Keyword{{Text: "hello", MatchType: models.MatchTypePartial}},
		Response: models.ResponseContent{Type: models.ResponseTypeText, Text: "reply from " + name},
	}
	for _, m := range mutate {
		m(rule)
	}
	f.rules.rules = append(f.rules.rules, rule)
	return rule
}

func TestHandleIncomingMessageHighestPriorityWins(t *testing.T) {
	f := newFixture(t)
	f.addRule("low", 3)
	r2 := f.addRule("high", 5)

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello world")
	require.NoError(t, err)
	require.NotNil(t, payload)

	assert.Equal(t, r2.ID.String(), payload.RuleID)
	assert.Equal(t, "reply from high", payload.Text)
	assert.Equal(t, "hello", payload.MatchedKeyword)

	require.Len(t, f.logs.rows, 1)
	row := f.logs.rows[0]
	assert.Equal(t, models.ResponseStatusSuccess, row.Status)
	assert.Equal(t, r2.ID, *row.RuleID)
	assert.Equal(t, "hello", row.MatchedKeyword)
	assert.Equal(t, "hello world", row.ReceivedMessage)
}

func TestHandleIncomingMessagePriorityTieBreaks(t *testing.T) {
	f := newFixture(t)
	created := f.now.Add(-time.Hour)

	older := f.addRule("older", 5, func(r *models.AutoResponseRule) {
		r.CreatedAt = created.Add(-time.Minute)
	})
	f.addRule("newer", 5, func(r *models.AutoResponseRule) {
		r.CreatedAt = created
	})

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, older.ID.String(), payload.RuleID)
}

func TestHandleIncomingMessageNoMatch(t *testing.T) {
	f := newFixture(t)
	f.addRule("greeting", 1)

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "goodbye")
	require.NoError(t, err)
	assert.Nil(t, payload)

	require.Len(t, f.logs.rows, 1)
	row := f.logs.rows[0]
	assert.Equal(t, models.ResponseStatusNoMatch, row.Status)
	assert.Nil(t, row.RuleID)
	assert.Equal(t, "goodbye", row.ReceivedMessage)
}

func TestHandleIncomingMessageUnknownFriend(t *testing.T) {
	f := newFixture(t)
	f.addRule("greeting", 1)

	_, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, models.NewULID(), "hello")
	assert.ErrorIs(t, err, ErrFriendNotFound)
	assert.Empty(t, f.logs.rows)
}

func TestHandleIncomingMessageSkipsMisconfiguredRule(t *testing.T) {
	f := newFixture(t)
	f.addRule("broken", 9, func(r *models.AutoResponseRule) {
		r.Response = models.ResponseContent{Type: "sticker"}
	})
	valid := f.addRule("fallback", 1)

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, valid.ID.String(), payload.RuleID)
}

func TestHandleIncomingMessageMisconfiguredRuleQuietWithoutMatch(t *testing.T) {
	f := newFixture(t)
	f.addRule("broken", 9, func(r *models.AutoResponseRule) {
		r.Keywords = []models.Keyword{{Text: "refund", MatchType: models.MatchTypeExact}}
		r.Response = models.ResponseContent{Type: "sticker"}
	})
	valid := f.addRule("greeting", 1)

	var buf bytes.Buffer
	f.engine = f.engine.WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, valid.ID.String(), payload.RuleID)
	assert.NotContains(t, buf.String(), "misconfigured")
}

func TestHandleIncomingMessageEnforcesLimits(t *testing.T) {
	f := newFixture(t)
	limited := f.addRule("limited", 9, func(r *models.AutoResponseRule) {
		r.Trigger.Limit = &models.LimitCondition{PerFriend: intPtr(1), Period: models.LimitPeriodDay}
	})
	fallback := f.addRule("fallback", 1)

	// First message consumes the limited rule's only slot.
	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, limited.ID.String(), payload.RuleID)

	// Second message sees the exhausted bucket and falls through.
	payload, err = f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, fallback.ID.String(), payload.RuleID)
}

func TestHandleIncomingMessageLimitRaceFallsThrough(t *testing.T) {
	f := newFixture(t)
	limited := f.addRule("limited", 9, func(r *models.AutoResponseRule) {
		r.Trigger.Limit = &models.LimitCondition{Total: intPtr(1), Period: models.LimitPeriodDay}
	})
	fallback := f.addRule("fallback", 1)

	// A concurrent message claims the last slot between the usage
	// prefetch and the increment: the prefetch sees zero, the
	// conditional increment sees a full bucket and denies.
	periodKey := models.PeriodKeyFor(models.LimitPeriodDay, f.now)
	f.counters.counts = map[string]int{
		counterKey(f.tenantID, limited.ID, "", periodKey): 1,
	}
	f.counters.staleReads = true

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, fallback.ID.String(), payload.RuleID)
}

func TestHandleIncomingMessageExecutesActions(t *testing.T) {
	f := newFixture(t)
	tagID := models.NewULID()
	f.addRule("tagger", 5, func(r *models.AutoResponseRule) {
		r.Actions = []models.RuleAction{
			{Type: models.ActionAddTag, TagID: tagID.String()},
			{Type: models.ActionUpdateField, Field: "last_topic", Value: "greeting"},
		}
	})

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)

	require.Len(t, f.friends.ops, 2)
	assert.Equal(t, tagOp{op: "add_tag", tagID: tagID.String(), friend: f.friend.ID.String()}, f.friends.ops[0])
	assert.Equal(t, tagOp{op: "update_field", field: "last_topic", value: "greeting", friend: f.friend.ID.String()}, f.friends.ops[1])

	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, models.ResponseStatusSuccess, f.logs.rows[0].Status)
}

func TestHandleIncomingMessageActionFailureStillResponds(t *testing.T) {
	f := newFixture(t)
	f.friends.actionErr = fmt.Errorf("tag store unavailable")
	f.addRule("tagger", 5, func(r *models.AutoResponseRule) {
		r.Actions = []models.RuleAction{{Type: models.ActionAddTag, TagID: models.NewULID().String()}}
	})

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, payload)

	require.Len(t, f.logs.rows, 1)
	row := f.logs.rows[0]
	assert.Equal(t, models.ResponseStatusFailed, row.Status)
	assert.Contains(t, row.ErrorMessage, "tag store unavailable")
}

func TestHandleIncomingMessageTruncatesLongMessages(t *testing.T) {
	f := newFixture(t)
	f.addRule("greeting", 1)

	long := "hello " + strings.Repeat("x", 5000)
	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, long)
	require.NoError(t, err)
	require.NotNil(t, payload)

	require.Len(t, f.logs.rows, 1)
	assert.Len(t, f.logs.rows[0].ReceivedMessage, DefaultConfig().MaxMessageLength)
}

func TestHandleIncomingMessageIgnoresOtherTenants(t *testing.T) {
	f := newFixture(t)
	f.addRule("other-tenant", 9, func(r *models.AutoResponseRule) {
		r.TenantID = models.NewULID()
	})

	payload, err := f.engine.HandleIncomingMessage(context.Background(), f.tenantID, f.friend.ID, "hello")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestReorderPersistsDensePriorities(t *testing.T) {
	f := newFixture(t)
	a := f.addRule("a", 4)
	b := f.addRule("b", 3)
	c := f.addRule("c", 2)
	d := f.addRule("d", 1)

	err := f.engine.Reorder(context.Background(), f.tenantID, 3, 0)
	require.NoError(t, err)

	updates := f.rules.updatesByTenant[f.tenantID.String()]
	require.Len(t, updates, 4)
	assert.Equal(t, repository.PriorityUpdate{ID: d.ID, Priority: 4}, updates[0])
	assert.Equal(t, repository.PriorityUpdate{ID: a.ID, Priority: 3}, updates[1])
	assert.Equal(t, repository.PriorityUpdate{ID: b.ID, Priority: 2}, updates[2])
	assert.Equal(t, repository.PriorityUpdate{ID: c.ID, Priority: 1}, updates[3])
}

func TestReorderNoOpSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	f.addRule("a", 2)
	f.addRule("b", 1)

	err := f.engine.Reorder(context.Background(), f.tenantID, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, f.rules.updatesByTenant)
}

func TestReorderPropagatesConflict(t *testing.T) {
	f := newFixture(t)
	f.addRule("a", 2)
	f.addRule("b", 1)
	f.rules.updateErr = repository.ErrConflict

	err := f.engine.Reorder(context.Background(), f.tenantID, 1, 0)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestReorderRejectsBadIndex(t *testing.T) {
	f := newFixture(t)
	f.addRule("a", 1)

	err := f.engine.Reorder(context.Background(), f.tenantID, 5, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
