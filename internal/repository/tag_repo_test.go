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

func setupTagTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Tag{})
	require.NoError(t, err)

	return db
}

func TestTagRepo_CreateAndGet(t *testing.T) {
	db := setupTagTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	tag := &models.Tag{TenantID: models.NewULID(), Name: "vip"}
	require.NoError(t, repo.Create(ctx, tag))
	assert.False(t, tag.ID.IsZero())

	found, err := repo.GetByID(ctx, tag.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "vip", found.Name)
}

func TestTagRepo_Create_Validation(t *testing.T) {
	db := setupTagTestDB(t)
	repo := NewTagRepository(db)

	err := repo.Create(context.Background(), &models.Tag{TenantID: models.NewULID()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestTagRepo_GetByTenant_ScopedAndOrdered(t *testing.T) {
	db := setupTagTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()
	tenantID := models.NewULID()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, repo.Create(ctx, &models.Tag{TenantID: tenantID, Name: name}))
	}
	require.NoError(t, repo.Create(ctx, &models.Tag{TenantID: models.NewULID(), Name: "other"}))

	tags, err := repo.GetByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "alpha", tags[0].Name)
	assert.Equal(t, "zeta", tags[2].Name)
}

func TestTagRepo_Delete(t *testing.T) {
	db := setupTagTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	tag := &models.Tag{TenantID: models.NewULID(), Name: "doomed"}
	require.NoError(t, repo.Create(ctx, tag))
	require.NoError(t, repo.Delete(ctx, tag.ID))

	found, err := repo.GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
