package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// TenantHandler handles tenant management endpoints.
type TenantHandler struct {
	repo repository.TenantRepository
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(repo repository.TenantRepository) *TenantHandler {
	return &TenantHandler{repo: repo}
}

// Register registers the tenant routes with the API.
func (h *TenantHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listTenants",
		Method:      "GET",
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getTenant",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}",
		Summary:     "Get tenant",
		Tags:        []string{"Tenants"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID:   "createTenant",
		Method:        "POST",
		Path:          "/api/v1/tenants",
		Summary:       "Create tenant",
		Tags:          []string{"Tenants"},
		DefaultStatus: 201,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateTenant",
		Method:      "PUT",
		Path:        "/api/v1/tenants/{tenantId}",
		Summary:     "Update tenant",
		Tags:        []string{"Tenants"},
	}, h.Update)
}

// TenantResponse is the API representation of a tenant. Channel
// credentials are write-only and never returned.
type TenantResponse struct {
	ID            string `json:"id" doc:"Tenant ID (ULID)"`
	Name          string `json:"name" doc:"Tenant name"`
	LineChannelID string `json:"line_channel_id,omitempty" doc:"LINE messaging channel ID"`
	IsActive      bool   `json:"is_active" doc:"Whether inbound messages are processed"`
	CreatedAt     string `json:"created_at" doc:"Creation timestamp (RFC3339)"`
	UpdatedAt     string `json:"updated_at" doc:"Last update timestamp (RFC3339)"`
}

// TenantFromModel converts a tenant model to its API representation.
func TenantFromModel(t *models.Tenant) TenantResponse {
	active := t.IsActive == nil || *t.IsActive
	return TenantResponse{
		ID:            t.ID.String(),
		Name:          t.Name,
		LineChannelID: t.LineChannelID,
		IsActive:      active,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
}

// ListTenantsOutput is the output for listing tenants.
type ListTenantsOutput struct {
	Body struct {
		Tenants []TenantResponse `json:"tenants" doc:"All tenants"`
	}
}

// List returns all tenants.
func (h *TenantHandler) List(ctx context.Context, _ *struct{}) (*ListTenantsOutput, error) {
	tenants, err := h.repo.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list tenants", err)
	}

	resp := &ListTenantsOutput{}
	resp.Body.Tenants = make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp.Body.Tenants = append(resp.Body.Tenants, TenantFromModel(t))
	}
	return resp, nil
}

// GetTenantInput is the input for getting a tenant.
type GetTenantInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
}

// GetTenantOutput is the output for getting a tenant.
type GetTenantOutput struct {
	Body TenantResponse
}

// Get returns a single tenant by ID.
func (h *TenantHandler) Get(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
	tenant, err := h.loadTenant(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	return &GetTenantOutput{Body: TenantFromModel(tenant)}, nil
}

// CreateTenantInput is the input for creating a tenant.
type CreateTenantInput struct {
	Body struct {
		Name              string `json:"name" doc:"Tenant name" minLength:"1" maxLength:"255"`
		LineChannelID     string `json:"line_channel_id,omitempty" doc:"LINE messaging channel ID"`
		LineChannelSecret string `json:"line_channel_secret,omitempty" doc:"LINE channel secret (write-only)"`
		LineAccessToken   string `json:"line_access_token,omitempty" doc:"LINE channel access token (write-only)"`
	}
}

// CreateTenantOutput is the output for creating a tenant.
type CreateTenantOutput struct {
	Body TenantResponse
}

// Create creates a new tenant.
func (h *TenantHandler) Create(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
	tenant := &models.Tenant{
		Name:              input.Body.Name,
		LineChannelID:     input.Body.LineChannelID,
		LineChannelSecret: input.Body.LineChannelSecret,
		LineAccessToken:   input.Body.LineAccessToken,
	}

	if err := h.repo.Create(ctx, tenant); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to create tenant", err)
	}

	return &CreateTenantOutput{Body: TenantFromModel(tenant)}, nil
}

// UpdateTenantInput is the input for updating a tenant.
type UpdateTenantInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Body     struct {
		Name              *string `json:"name,omitempty" doc:"Tenant name"`
		LineChannelID     *string `json:"line_channel_id,omitempty" doc:"LINE messaging channel ID"`
		LineChannelSecret *string `json:"line_channel_secret,omitempty" doc:"LINE channel secret (write-only)"`
		LineAccessToken   *string `json:"line_access_token,omitempty" doc:"LINE channel access token (write-only)"`
		IsActive          *bool   `json:"is_active,omitempty" doc:"Whether inbound messages are processed"`
	}
}

// UpdateTenantOutput is the output for updating a tenant.
type UpdateTenantOutput struct {
	Body TenantResponse
}

// Update applies a partial update to a tenant.
func (h *TenantHandler) Update(ctx context.Context, input *UpdateTenantInput) (*UpdateTenantOutput, error) {
	tenant, err := h.loadTenant(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}

	if input.Body.Name != nil {
		tenant.Name = *input.Body.Name
	}
	if input.Body.LineChannelID != nil {
		tenant.LineChannelID = *input.Body.LineChannelID
	}
	if input.Body.LineChannelSecret != nil {
		tenant.LineChannelSecret = *input.Body.LineChannelSecret
	}
	if input.Body.LineAccessToken != nil {
		tenant.LineAccessToken = *input.Body.LineAccessToken
	}
	if input.Body.IsActive != nil {
		tenant.IsActive = input.Body.IsActive
	}

	if err := h.repo.Update(ctx, tenant); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to update tenant", err)
	}

	return &UpdateTenantOutput{Body: TenantFromModel(tenant)}, nil
}

// loadTenant parses the tenant ID and fetches the tenant, mapping
// missing rows to 404.
func (h *TenantHandler) loadTenant(ctx context.Context, rawID string) (*models.Tenant, error) {
	id, err := models.ParseULID(rawID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	tenant, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get tenant", err)
	}
	if tenant == nil {
		return nil, huma.Error404NotFound("tenant not found")
	}
	return tenant, nil
}
