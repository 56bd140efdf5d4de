package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// friendRepository implements FriendRepository using GORM.
type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new FriendRepository.
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

// Create creates a new friend.
func (r *friendRepository) Create(ctx context.Context, friend *models.Friend) error {
	if err := friend.Validate(); err != nil {
		return fmt.Errorf("validating friend: %w", err)
	}
	return r.db.WithContext(ctx).Create(friend).Error
}

// GetByID retrieves a friend by ID with tags preloaded.
func (r *friendRepository) GetByID(ctx context.Context, id models.ULID) (*models.Friend, error) {
	var friend models.Friend
	if err := r.db.WithContext(ctx).Preload("Tags").First(&friend, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &friend, nil
}

// GetByLineUserID retrieves a friend by LINE user ID with tags preloaded.
func (r *friendRepository) GetByLineUserID(ctx context.Context, tenantID models.ULID, lineUserID string) (*models.Friend, error) {
	var friend models.Friend
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("tenant_id = ? AND line_user_id = ?", tenantID, lineUserID).
		First(&friend).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &friend, nil
}

// Update updates an existing friend.
func (r *friendRepository) Update(ctx context.Context, friend *models.Friend) error {
	if err := friend.Validate(); err != nil {
		return fmt.Errorf("validating friend: %w", err)
	}
	return r.db.WithContext(ctx).Save(friend).Error
}

// AddTag attaches a tag to a friend. Adding an existing tag is a no-op.
func (r *friendRepository) AddTag(ctx context.Context, friendID, tagID models.ULID) error {
	friend := models.Friend{BaseModel: models.BaseModel{ID: friendID}}
	tag := models.Tag{BaseModel: models.BaseModel{ID: tagID}}
	return r.db.WithContext(ctx).Model(&friend).Omit("Tags.*").Association("Tags").Append(&tag)
}

// RemoveTag detaches a tag from a friend.
func (r *friendRepository) RemoveTag(ctx context.Context, friendID, tagID models.ULID) error {
	friend := models.Friend{BaseModel: models.BaseModel{ID: friendID}}
	tag := models.Tag{BaseModel: models.BaseModel{ID: tagID}}
	return r.db.WithContext(ctx).Model(&friend).Association("Tags").Delete(&tag)
}

// UpdateCustomField sets one custom field on a friend.
func (r *friendRepository) UpdateCustomField(ctx context.Context, friendID models.ULID, field, value string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var friend models.Friend
		if err := tx.First(&friend, "id = ?", friendID).Error; err != nil {
			return err
		}
		if friend.CustomFields == nil {
			friend.CustomFields = make(map[string]string)
		}
		friend.CustomFields[field] = value
		return tx.Model(&friend).Update("custom_fields", friend.CustomFields).Error
	})
}

// Ensure friendRepository implements FriendRepository.
var _ FriendRepository = (*friendRepository)(nil)
