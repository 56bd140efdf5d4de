package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/linarr/linarr/internal/models"
)

func setupLogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ResponseLog{})
	require.NoError(t, err)

	return db
}

func makeLog(tenantID models.ULID, status models.ResponseStatus) *models.ResponseLog {
	return &models.ResponseLog{
		TenantID:        tenantID,
		FriendID:        models.NewULID(),
		ReceivedMessage: "hello",
		Status:          status,
	}
}

func TestLogRepo_CreateAndList(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewResponseLogRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	ruleID := models.NewULID()
	row := makeLog(tenantID, models.ResponseStatusSuccess)
	row.RuleID = &ruleID
	row.MatchedKeyword = "hello"
	row.SentResponse = "hi there"
	require.NoError(t, repo.Create(ctx, row))
	require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusNoMatch)))
	require.NoError(t, repo.Create(ctx, makeLog(models.NewULID(), models.ResponseStatusSuccess)))

	logs, total, err := repo.GetByTenant(ctx, tenantID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)
}

func TestLogRepo_GetByTenant_Pagination(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewResponseLogRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusSuccess)))
	}

	page1, total, err := repo.GetByTenant(ctx, tenantID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page1, 2)

	page3, _, err := repo.GetByTenant(ctx, tenantID, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestLogRepo_Create_Validation(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewResponseLogRepository(db)
	ctx := context.Background()

	row := makeLog(models.NewULID(), "bogus")
	err := repo.Create(ctx, row)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}

func TestLogRepo_CountByDay(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewResponseLogRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusSuccess)))
	require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusSuccess)))
	require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusNoMatch)))

	since := time.Now().Add(-24 * time.Hour)
	counts, err := repo.CountByDay(ctx, tenantID, since)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	byStatus := map[string]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Total
	}
	assert.Equal(t, int64(2), byStatus[string(models.ResponseStatusSuccess)])
	assert.Equal(t, int64(1), byStatus[string(models.ResponseStatusNoMatch)])
}

func TestLogRepo_CountByRule(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewResponseLogRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	ruleA := models.NewULID()
	ruleB := models.NewULID()

	for i := 0; i < 3; i++ {
		row := makeLog(tenantID, models.ResponseStatusSuccess)
		row.RuleID = &ruleA
		require.NoError(t, repo.Create(ctx, row))
	}
	row := makeLog(tenantID, models.ResponseStatusSuccess)
	row.RuleID = &ruleB
	require.NoError(t, repo.Create(ctx, row))
	// No-match rows carry no rule and are excluded.
	require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusNoMatch)))

	counts, err := repo.CountByRule(ctx, tenantID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, ruleA.String(), counts[0].RuleID)
	assert.Equal(t, int64(3), counts[0].Total)
	assert.Equal(t, ruleB.String(), counts[1].RuleID)
	assert.Equal(t, int64(1), counts[1].Total)
}

func TestLogRepo_PruneBefore(t *testing.T) {
	db := setupLogTestDB(t)
	repo := NewResponseLogRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	old := makeLog(tenantID, models.ResponseStatusSuccess)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, db.Model(old).Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, repo.Create(ctx, makeLog(tenantID, models.ResponseStatusSuccess)))

	pruned, err := repo.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, total, err := repo.GetByTenant(ctx, tenantID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
