package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// TagHandler handles tag management endpoints.
type TagHandler struct {
	repo repository.TagRepository
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(repo repository.TagRepository) *TagHandler {
	return &TagHandler{repo: repo}
}

// Register registers the tag routes with the API.
func (h *TagHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listTags",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}/tags",
		Summary:     "List tags",
		Tags:        []string{"Tags"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "createTag",
		Method:        "POST",
		Path:          "/api/v1/tenants/{tenantId}/tags",
		Summary:       "Create tag",
		Tags:          []string{"Tags"},
		DefaultStatus: 201,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        "DELETE",
		Path:          "/api/v1/tenants/{tenantId}/tags/{id}",
		Summary:       "Delete tag",
		Tags:          []string{"Tags"},
		DefaultStatus: 204,
	}, h.Delete)
}

// TagResponse is the API representation of a tag.
type TagResponse struct {
	ID        string `json:"id" doc:"Tag ID (ULID)"`
	TenantID  string `json:"tenant_id" doc:"Owning tenant ID"`
	Name      string `json:"name" doc:"Tag label"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (RFC3339)"`
}

// TagFromModel converts a tag model to its API representation.
func TagFromModel(t *models.Tag) TagResponse {
	return TagResponse{
		ID:        t.ID.String(),
		TenantID:  t.TenantID.String(),
		Name:      t.Name,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// ListTagsInput is the input for listing tags.
type ListTagsInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
}

// ListTagsOutput is the output for listing tags.
type ListTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"Tenant's tags, ordered by name"`
	}
}

// List returns all tags for a tenant.
func (h *TagHandler) List(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	tags, err := h.repo.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list tags", err)
	}

	resp := &ListTagsOutput{}
	resp.Body.Tags = make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		resp.Body.Tags = append(resp.Body.Tags, TagFromModel(t))
	}
	return resp, nil
}

// CreateTagInput is the input for creating a tag.
type CreateTagInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Body     struct {
		Name string `json:"name" doc:"Tag label" minLength:"1" maxLength:"255"`
	}
}

// CreateTagOutput is the output for creating a tag.
type CreateTagOutput struct {
	Body TagResponse
}

// Create creates a new tag for the tenant.
func (h *TagHandler) Create(ctx context.Context, input *CreateTagInput) (*CreateTagOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	tag := &models.Tag{TenantID: tenantID, Name: input.Body.Name}
	if err := h.repo.Create(ctx, tag); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to create tag", err)
	}

	return &CreateTagOutput{Body: TagFromModel(tag)}, nil
}

// DeleteTagInput is the input for deleting a tag.
type DeleteTagInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Tag ID (ULID)"`
}

// Delete soft-deletes a tag.
func (h *TagHandler) Delete(ctx context.Context, input *DeleteTagInput) (*struct{}, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tag ID format", err)
	}

	tag, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get tag", err)
	}
	if tag == nil || tag.TenantID != tenantID {
		return nil, huma.Error404NotFound("tag not found")
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete tag", err)
	}
	return nil, nil
}
