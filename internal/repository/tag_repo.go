package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// TagRepository defines operations for tag persistence.
type TagRepository interface {
	// Create creates a new tag.
	Create(ctx context.Context, tag *models.Tag) error
	// GetByID retrieves a tag by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Tag, error)
	// GetByTenant retrieves all tags for a tenant, ordered by name.
	GetByTenant(ctx context.Context, tenantID models.ULID) ([]*models.Tag, error)
	// Delete soft-deletes a tag by ID.
	Delete(ctx context.Context, id models.ULID) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

var _ TagRepository = (*tagRepository)(nil)

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("validating tag: %w", err)
	}
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *tagRepository) GetByID(ctx context.Context, id models.ULID) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) GetByTenant(ctx context.Context, tenantID models.ULID) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Tag{}).Error
}
