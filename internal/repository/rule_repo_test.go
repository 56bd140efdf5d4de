package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/linarr/linarr/internal/models"
)

func setupRuleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AutoResponseRule{})
	require.NoError(t, err)

	return db
}

func makeRule(tenantID models.ULID, name string, priority int) *models.AutoResponseRule {
	return &models.AutoResponseRule{
		TenantID: tenantID,
		Name:     name,
		Priority: priority,
		Keywords: []models.Keyword{{Text: "hello", MatchType: models.MatchTypePartial}},
		Response: models.ResponseContent{Type: models.ResponseTypeText, Text: "hi there"},
	}
}

func TestRuleRepo_CreateAndGet(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	rule := makeRule(tenantID, "greeting", 1)
	err := repo.Create(ctx, rule)
	require.NoError(t, err)
	assert.False(t, rule.ID.IsZero())

	found, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "greeting", found.Name)
	require.Len(t, found.Keywords, 1)
	assert.Equal(t, models.MatchTypePartial, found.Keywords[0].MatchType)
}

func TestRuleRepo_Create_Validation(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(r *models.AutoResponseRule)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(r *models.AutoResponseRule) { r.Name = "" },
			wantErr: "name",
		},
		{
			name:    "no keywords",
			mutate:  func(r *models.AutoResponseRule) { r.Keywords = nil },
			wantErr: "keyword",
		},
		{
			name: "invalid regex keyword",
			mutate: func(r *models.AutoResponseRule) {
				r.Keywords = []models.Keyword{{Text: "[bad", MatchType: models.MatchTypeRegex}}
			},
			wantErr: "regex",
		},
		{
			name: "unknown response type",
			mutate: func(r *models.AutoResponseRule) {
				r.Response = models.ResponseContent{Type: "sticker"}
			},
			wantErr: "response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := makeRule(models.NewULID(), "bad rule", 1)
			tt.mutate(rule)
			err := repo.Create(ctx, rule)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRuleRepo_GetByTenant_OrderedByPriority(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	require.NoError(t, repo.Create(ctx, makeRule(tenantID, "low", 1)))
	require.NoError(t, repo.Create(ctx, makeRule(tenantID, "high", 3)))
	require.NoError(t, repo.Create(ctx, makeRule(tenantID, "mid", 2)))
	require.NoError(t, repo.Create(ctx, makeRule(models.NewULID(), "other tenant", 9)))

	rules, err := repo.GetByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "high", rules[0].Name)
	assert.Equal(t, "mid", rules[1].Name)
	assert.Equal(t, "low", rules[2].Name)
}

func TestRuleRepo_ListActive_ExcludesInactive(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	active := makeRule(tenantID, "active", 2)
	require.NoError(t, repo.Create(ctx, active))

	inactive := makeRule(tenantID, "inactive", 1)
	inactive.IsActive = models.BoolPtr(false)
	require.NoError(t, repo.Create(ctx, inactive))

	rules, err := repo.ListActive(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "active", rules[0].Name)
}

func TestRuleRepo_Delete_SoftDeletes(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	rule := makeRule(tenantID, "doomed", 1)
	require.NoError(t, repo.Create(ctx, rule))
	require.NoError(t, repo.Delete(ctx, rule.ID))

	found, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	count, err := repo.Count(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRuleRepo_UpdatePriorities(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	a := makeRule(tenantID, "a", 3)
	b := makeRule(tenantID, "b", 2)
	c := makeRule(tenantID, "c", 1)
	for _, r := range []*models.AutoResponseRule{a, b, c} {
		require.NoError(t, repo.Create(ctx, r))
	}

	err := repo.UpdatePriorities(ctx, tenantID, []PriorityUpdate{
		{ID: c.ID, Priority: 3},
		{ID: a.ID, Priority: 2},
		{ID: b.ID, Priority: 1},
	})
	require.NoError(t, err)

	rules, err := repo.GetByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "c", rules[0].Name)
	assert.Equal(t, "a", rules[1].Name)
	assert.Equal(t, "b", rules[2].Name)
}

func TestRuleRepo_UpdatePriorities_ConflictOnMissingRule(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	a := makeRule(tenantID, "a", 2)
	b := makeRule(tenantID, "b", 1)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	// A rule deleted by a concurrent request makes the batch stale.
	err := repo.UpdatePriorities(ctx, tenantID, []PriorityUpdate{
		{ID: a.ID, Priority: 2},
		{ID: models.NewULID(), Priority: 1},
	})
	assert.ErrorIs(t, err, ErrConflict)

	// The batch rolled back: a keeps its original priority.
	found, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Priority)
}

func TestRuleRepo_UpdatePriorities_ConflictOnCountMismatch(t *testing.T) {
	db := setupRuleTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	a := makeRule(tenantID, "a", 2)
	b := makeRule(tenantID, "b", 1)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	// A rule created by a concurrent request makes the batch incomplete.
	err := repo.UpdatePriorities(ctx, tenantID, []PriorityUpdate{
		{ID: a.ID, Priority: 1},
	})
	assert.ErrorIs(t, err, ErrConflict)
}
