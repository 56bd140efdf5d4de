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

func setupFriendTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Friend{}, &models.Tag{})
	require.NoError(t, err)

	return db
}

func TestFriendRepo_CreateAndGet(t *testing.T) {
	db := setupFriendTestDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	friend := &models.Friend{
		TenantID:     tenantID,
		LineUserID:   "U1234",
		DisplayName:  "Taro",
		CustomFields: map[string]string{"plan": "premium"},
	}
	require.NoError(t, repo.Create(ctx, friend))
	assert.False(t, friend.ID.IsZero())

	found, err := repo.GetByID(ctx, friend.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Taro", found.DisplayName)
	assert.Equal(t, "premium", found.CustomFields["plan"])
}

func TestFriendRepo_GetByLineUserID_ScopedToTenant(t *testing.T) {
	db := setupFriendTestDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	tenantA := models.NewULID()
	tenantB := models.NewULID()

	require.NoError(t, repo.Create(ctx, &models.Friend{TenantID: tenantA, LineUserID: "U1", DisplayName: "in A"}))
	require.NoError(t, repo.Create(ctx, &models.Friend{TenantID: tenantB, LineUserID: "U1", DisplayName: "in B"}))

	found, err := repo.GetByLineUserID(ctx, tenantA, "U1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "in A", found.DisplayName)

	missing, err := repo.GetByLineUserID(ctx, tenantA, "U404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFriendRepo_AddRemoveTag(t *testing.T) {
	db := setupFriendTestDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	friend := &models.Friend{TenantID: tenantID, LineUserID: "U1"}
	require.NoError(t, repo.Create(ctx, friend))

	tag := &models.Tag{TenantID: tenantID, Name: "vip"}
	require.NoError(t, db.Create(tag).Error)

	require.NoError(t, repo.AddTag(ctx, friend.ID, tag.ID))
	// Re-adding the same tag is a no-op, not an error.
	require.NoError(t, repo.AddTag(ctx, friend.ID, tag.ID))

	found, err := repo.GetByID(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, found.Tags, 1)
	assert.Equal(t, "vip", found.Tags[0].Name)

	require.NoError(t, repo.RemoveTag(ctx, friend.ID, tag.ID))

	found, err = repo.GetByID(ctx, friend.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Tags)
}

func TestFriendRepo_UpdateCustomField(t *testing.T) {
	db := setupFriendTestDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	friend := &models.Friend{TenantID: models.NewULID(), LineUserID: "U1"}
	require.NoError(t, repo.Create(ctx, friend))

	require.NoError(t, repo.UpdateCustomField(ctx, friend.ID, "last_topic", "pricing"))
	require.NoError(t, repo.UpdateCustomField(ctx, friend.ID, "plan", "premium"))
	require.NoError(t, repo.UpdateCustomField(ctx, friend.ID, "last_topic", "support"))

	found, err := repo.GetByID(ctx, friend.ID)
	require.NoError(t, err)
	assert.Equal(t, "support", found.CustomFields["last_topic"])
	assert.Equal(t, "premium", found.CustomFields["plan"])
}

func TestFriendRepo_Create_Validation(t *testing.T) {
	db := setupFriendTestDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &models.Friend{TenantID: models.NewULID()})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "line_user_id")
}
