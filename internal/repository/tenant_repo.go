package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// tenantRepository implements TenantRepository using GORM.
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// Create creates a new tenant.
func (r *tenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return fmt.Errorf("validating tenant: %w", err)
	}
	return r.db.WithContext(ctx).Create(tenant).Error
}

// GetByID retrieves a tenant by ID.
func (r *tenantRepository) GetByID(ctx context.Context, id models.ULID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// GetAll retrieves all tenants.
func (r *tenantRepository) GetAll(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Update updates an existing tenant.
func (r *tenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return fmt.Errorf("validating tenant: %w", err)
	}
	return r.db.WithContext(ctx).Save(tenant).Error
}

// Ensure tenantRepository implements TenantRepository.
var _ TenantRepository = (*tenantRepository)(nil)
