package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// FriendHandler handles friend management endpoints.
type FriendHandler struct {
	friends repository.FriendRepository
	tags    repository.TagRepository
}

// NewFriendHandler creates a new friend handler.
func NewFriendHandler(friends repository.FriendRepository, tags repository.TagRepository) *FriendHandler {
	return &FriendHandler{friends: friends, tags: tags}
}

// Register registers the friend routes with the API.
func (h *FriendHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "createFriend",
		Method:        "POST",
		Path:          "/api/v1/tenants/{tenantId}/friends",
		Summary:       "Create friend",
		Tags:          []string{"Friends"},
		DefaultStatus: 201,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getFriend",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}/friends/{id}",
		Summary:     "Get friend",
		Tags:        []string{"Friends"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "updateFriend",
		Method:      "PUT",
		Path:        "/api/v1/tenants/{tenantId}/friends/{id}",
		Summary:     "Update friend",
		Tags:        []string{"Friends"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID:   "addFriendTag",
		Method:        "PUT",
		Path:          "/api/v1/tenants/{tenantId}/friends/{id}/tags/{tagId}",
		Summary:       "Attach tag to friend",
		Description:   "Attaches a tag to the friend. Attaching an already-attached tag is a no-op.",
		Tags:          []string{"Friends"},
		DefaultStatus: 204,
	}, h.AddTag)

	huma.Register(api, huma.Operation{
		OperationID:   "removeFriendTag",
		Method:        "DELETE",
		Path:          "/api/v1/tenants/{tenantId}/friends/{id}/tags/{tagId}",
		Summary:       "Detach tag from friend",
		Tags:          []string{"Friends"},
		DefaultStatus: 204,
	}, h.RemoveTag)

	huma.Register(api, huma.Operation{
		OperationID: "updateFriendField",
		Method:      "PUT",
		Path:        "/api/v1/tenants/{tenantId}/friends/{id}/fields/{field}",
		Summary:     "Set friend custom field",
		Tags:        []string{"Friends"},
	}, h.UpdateField)
}

// FriendResponse is the API representation of a friend.
type FriendResponse struct {
	ID           string            `json:"id" doc:"Friend ID (ULID)"`
	TenantID     string            `json:"tenant_id" doc:"Owning tenant ID"`
	LineUserID   string            `json:"line_user_id" doc:"LINE platform user ID"`
	DisplayName  string            `json:"display_name,omitempty" doc:"Profile name"`
	SegmentIDs   []string          `json:"segment_ids,omitempty" doc:"Segment memberships"`
	CustomFields map[string]string `json:"custom_fields,omitempty" doc:"Tenant-defined attributes"`
	IsBlocked    bool              `json:"is_blocked" doc:"Whether the friend blocked the channel"`
	Tags         []models.Tag      `json:"tags,omitempty" doc:"Attached tags"`
	CreatedAt    string            `json:"created_at" doc:"Creation timestamp (RFC3339)"`
	UpdatedAt    string            `json:"updated_at" doc:"Last update timestamp (RFC3339)"`
}

// FriendFromModel converts a friend model to its API representation.
func FriendFromModel(f *models.Friend) FriendResponse {
	return FriendResponse{
		ID:           f.ID.String(),
		TenantID:     f.TenantID.String(),
		LineUserID:   f.LineUserID,
		DisplayName:  f.DisplayName,
		SegmentIDs:   f.SegmentIDs,
		CustomFields: f.CustomFields,
		IsBlocked:    f.IsBlocked,
		Tags:         f.Tags,
		CreatedAt:    f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    f.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateFriendInput is the input for creating a friend.
type CreateFriendInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Body     struct {
		LineUserID   string            `json:"line_user_id" doc:"LINE platform user ID" minLength:"1" maxLength:"64"`
		DisplayName  string            `json:"display_name,omitempty" doc:"Profile name" maxLength:"255"`
		SegmentIDs   []string          `json:"segment_ids,omitempty" doc:"Segment memberships"`
		CustomFields map[string]string `json:"custom_fields,omitempty" doc:"Tenant-defined attributes"`
	}
}

// CreateFriendOutput is the output for creating a friend.
type CreateFriendOutput struct {
	Body FriendResponse
}

// Create creates a new friend for the tenant.
func (h *FriendHandler) Create(ctx context.Context, input *CreateFriendInput) (*CreateFriendOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	friend := &models.Friend{
		TenantID:     tenantID,
		LineUserID:   input.Body.LineUserID,
		DisplayName:  input.Body.DisplayName,
		SegmentIDs:   input.Body.SegmentIDs,
		CustomFields: input.Body.CustomFields,
	}

	if err := h.friends.Create(ctx, friend); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to create friend", err)
	}

	return &CreateFriendOutput{Body: FriendFromModel(friend)}, nil
}

// GetFriendInput is the input for getting a friend.
type GetFriendInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Friend ID (ULID)"`
}

// GetFriendOutput is the output for getting a friend.
type GetFriendOutput struct {
	Body FriendResponse
}

// Get returns a single friend with tags preloaded.
func (h *FriendHandler) Get(ctx context.Context, input *GetFriendInput) (*GetFriendOutput, error) {
	friend, err := h.loadTenantFriend(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetFriendOutput{Body: FriendFromModel(friend)}, nil
}

// UpdateFriendInput is the input for updating a friend.
type UpdateFriendInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Friend ID (ULID)"`
	Body     struct {
		DisplayName *string   `json:"display_name,omitempty" doc:"Profile name"`
		SegmentIDs  *[]string `json:"segment_ids,omitempty" doc:"Segment memberships (replaces existing)"`
		IsBlocked   *bool     `json:"is_blocked,omitempty" doc:"Whether the friend blocked the channel"`
	}
}

// UpdateFriendOutput is the output for updating a friend.
type UpdateFriendOutput struct {
	Body FriendResponse
}

// Update applies a partial update to a friend.
func (h *FriendHandler) Update(ctx context.Context, input *UpdateFriendInput) (*UpdateFriendOutput, error) {
	friend, err := h.loadTenantFriend(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Body.DisplayName != nil {
		friend.DisplayName = *input.Body.DisplayName
	}
	if input.Body.SegmentIDs != nil {
		friend.SegmentIDs = *input.Body.SegmentIDs
	}
	if input.Body.IsBlocked != nil {
		friend.IsBlocked = *input.Body.IsBlocked
	}

	if err := h.friends.Update(ctx, friend); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to update friend", err)
	}

	return &UpdateFriendOutput{Body: FriendFromModel(friend)}, nil
}

// FriendTagInput is the input for attaching or detaching a tag.
type FriendTagInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Friend ID (ULID)"`
	TagID    string `path:"tagId" doc:"Tag ID (ULID)"`
}

// AddTag attaches a tag to a friend.
func (h *FriendHandler) AddTag(ctx context.Context, input *FriendTagInput) (*struct{}, error) {
	friend, tag, err := h.loadFriendAndTag(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := h.friends.AddTag(ctx, friend.ID, tag.ID); err != nil {
		return nil, huma.Error500InternalServerError("failed to attach tag", err)
	}
	return nil, nil
}

// RemoveTag detaches a tag from a friend.
func (h *FriendHandler) RemoveTag(ctx context.Context, input *FriendTagInput) (*struct{}, error) {
	friend, tag, err := h.loadFriendAndTag(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := h.friends.RemoveTag(ctx, friend.ID, tag.ID); err != nil {
		return nil, huma.Error500InternalServerError("failed to detach tag", err)
	}
	return nil, nil
}

// UpdateFieldInput is the input for setting a custom field.
type UpdateFieldInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Friend ID (ULID)"`
	Field    string `path:"field" doc:"Custom field name" maxLength:"128"`
	Body     struct {
		Value string `json:"value" doc:"Field value" maxLength:"1024"`
	}
}

// UpdateFieldOutput is the output for setting a custom field.
type UpdateFieldOutput struct {
	Body FriendResponse
}

// UpdateField sets one custom field on a friend.
func (h *FriendHandler) UpdateField(ctx context.Context, input *UpdateFieldInput) (*UpdateFieldOutput, error) {
	friend, err := h.loadTenantFriend(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.friends.UpdateCustomField(ctx, friend.ID, input.Field, input.Body.Value); err != nil {
		return nil, huma.Error500InternalServerError("failed to update custom field", err)
	}

	updated, err := h.friends.GetByID(ctx, friend.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to reload friend", err)
	}
	if updated == nil {
		return nil, huma.Error500InternalServerError("failed to reload friend")
	}
	return &UpdateFieldOutput{Body: FriendFromModel(updated)}, nil
}

// loadTenantFriend parses IDs and fetches the friend, mapping missing
// or cross-tenant rows to 404.
func (h *FriendHandler) loadTenantFriend(ctx context.Context, rawTenantID, rawID string) (*models.Friend, error) {
	tenantID, err := models.ParseULID(rawTenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}
	id, err := models.ParseULID(rawID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid friend ID format", err)
	}

	friend, err := h.friends.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get friend", err)
	}
	if friend == nil || friend.TenantID != tenantID {
		return nil, huma.Error404NotFound("friend not found")
	}
	return friend, nil
}

// loadFriendAndTag resolves both sides of a tag attachment, enforcing
// tenant scope on each.
func (h *FriendHandler) loadFriendAndTag(ctx context.Context, input *FriendTagInput) (*models.Friend, *models.Tag, error) {
	friend, err := h.loadTenantFriend(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, nil, err
	}

	tagID, err := models.ParseULID(input.TagID)
	if err != nil {
		return nil, nil, huma.Error400BadRequest("invalid tag ID format", err)
	}

	tag, err := h.tags.GetByID(ctx, tagID)
	if err != nil {
		return nil, nil, huma.Error500InternalServerError("failed to get tag", err)
	}
	if tag == nil || tag.TenantID != friend.TenantID {
		return nil, nil, huma.Error404NotFound("tag not found")
	}
	return friend, tag, nil
}
