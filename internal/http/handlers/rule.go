// Package handlers provides HTTP API handlers for linarr.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linarr/linarr/internal/engine"
	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// RuleHandler handles auto-response rule API endpoints.
type RuleHandler struct {
	repo   repository.RuleRepository
	engine *engine.Engine
}

// NewRuleHandler creates a new rule handler.
func NewRuleHandler(repo repository.RuleRepository, eng *engine.Engine) *RuleHandler {
	return &RuleHandler{repo: repo, engine: eng}
}

// Register registers the rule routes with the API.
func (h *RuleHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listRules",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}/rules",
		Summary:     "List rules",
		Description: "Returns the tenant's rules, highest priority first",
		Tags:        []string{"Rules"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getRule",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}/rules/{id}",
		Summary:     "Get rule",
		Description: "Returns a rule by ID",
		Tags:        []string{"Rules"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "createRule",
		Method:      "POST",
		Path:        "/api/v1/tenants/{tenantId}/rules",
		Summary:     "Create rule",
		Description: "Creates a new auto-response rule",
		Tags:        []string{"Rules"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateRule",
		Method:      "PUT",
		Path:        "/api/v1/tenants/{tenantId}/rules/{id}",
		Summary:     "Update rule",
		Description: "Updates an existing rule",
		Tags:        []string{"Rules"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteRule",
		Method:      "DELETE",
		Path:        "/api/v1/tenants/{tenantId}/rules/{id}",
		Summary:     "Delete rule",
		Description: "Deletes a rule",
		Tags:        []string{"Rules"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "reorderRules",
		Method:      "POST",
		Path:        "/api/v1/tenants/{tenantId}/rules/reorder",
		Summary:     "Reorder rules",
		Description: "Moves a rule within the priority list and reassigns dense descending priorities",
		Tags:        []string{"Rules"},
	}, h.Reorder)
}

// RuleResponse represents a rule in API responses.
type RuleResponse struct {
	ID          string                 `json:"id" doc:"Rule ID (ULID)"`
	TenantID    string                 `json:"tenant_id" doc:"Owning tenant ID"`
	Name        string                 `json:"name" doc:"Rule name"`
	Description string                 `json:"description,omitempty" doc:"Rule description"`
	Priority    int                    `json:"priority" doc:"Selection priority (higher wins)"`
	IsActive    bool                   `json:"is_active" doc:"Whether the rule is eligible for selection"`
	Keywords    []models.Keyword       `json:"keywords" doc:"Keywords; any match fires the rule"`
	Trigger     models.TriggerConfig   `json:"trigger" doc:"Optional time/friend/limit conditions"`
	Response    models.ResponseContent `json:"response" doc:"Response payload"`
	Actions     []models.RuleAction    `json:"actions,omitempty" doc:"Post-match actions"`
	ValidUntil  *string                `json:"valid_until,omitempty" doc:"Expiry instant (RFC3339)"`
	CreatedAt   string                 `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   string                 `json:"updated_at" doc:"Last update timestamp"`
}

// RuleFromModel converts a models.AutoResponseRule to RuleResponse.
func RuleFromModel(r *models.AutoResponseRule) RuleResponse {
	resp := RuleResponse{
		ID:          r.ID.String(),
		TenantID:    r.TenantID.String(),
		Name:        r.Name,
		Description: r.Description,
		Priority:    r.Priority,
		IsActive:    models.BoolVal(r.IsActive),
		Keywords:    r.Keywords,
		Trigger:     r.Trigger,
		Response:    r.Response,
		Actions:     r.Actions,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if r.ValidUntil != nil {
		s := r.ValidUntil.Format(time.RFC3339)
		resp.ValidUntil = &s
	}
	return resp
}

// ListRulesInput is the input for listing rules.
type ListRulesInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Active   string `query:"active" doc:"Only active rules (true or false)" required:"false" enum:"true,false,"`
}

// ListRulesOutput is the output for listing rules.
type ListRulesOutput struct {
	Body struct {
		Rules []RuleResponse `json:"rules"`
		Count int            `json:"count"`
	}
}

// List returns the tenant's rules, highest priority first.
func (h *RuleHandler) List(ctx context.Context, input *ListRulesInput) (*ListRulesOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	var rules []*models.AutoResponseRule
	if input.Active == "true" {
		rules, err = h.repo.ListActive(ctx, tenantID)
	} else {
		rules, err = h.repo.GetByTenant(ctx, tenantID)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list rules", err)
	}

	resp := &ListRulesOutput{}
	resp.Body.Rules = make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		resp.Body.Rules = append(resp.Body.Rules, RuleFromModel(r))
	}
	resp.Body.Count = len(rules)

	return resp, nil
}

// GetRuleInput is the input for getting a rule.
type GetRuleInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Rule ID (ULID)"`
}

// GetRuleOutput is the output for getting a rule.
type GetRuleOutput struct {
	Body RuleResponse
}

// GetByID returns a rule by ID.
func (h *RuleHandler) GetByID(ctx context.Context, input *GetRuleInput) (*GetRuleOutput, error) {
	rule, err := h.loadTenantRule(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetRuleOutput{Body: RuleFromModel(rule)}, nil
}

// CreateRuleRequest is the request body for creating a rule.
type CreateRuleRequest struct {
	Name        string                 `json:"name" doc:"Rule name" minLength:"1" maxLength:"255"`
	Description string                 `json:"description,omitempty" doc:"Rule description" maxLength:"1024"`
	IsActive    *bool                  `json:"is_active,omitempty" doc:"Whether the rule is active (default: true)"`
	Keywords    []models.Keyword       `json:"keywords" doc:"Keywords; any match fires the rule" minItems:"1"`
	Trigger     *models.TriggerConfig  `json:"trigger,omitempty" doc:"Optional time/friend/limit conditions"`
	Response    models.ResponseContent `json:"response" doc:"Response payload"`
	Actions     []models.RuleAction    `json:"actions,omitempty" doc:"Post-match actions"`
	ValidUntil  *string                `json:"valid_until,omitempty" doc:"Expiry instant (RFC3339)"`
}

// CreateRuleInput is the input for creating a rule.
type CreateRuleInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Body     CreateRuleRequest
}

// CreateRuleOutput is the output for creating a rule.
type CreateRuleOutput struct {
	Body RuleResponse
}

// Create creates a new rule. New rules go to the top of the priority
// list: priority is one above the tenant's current maximum.
func (h *RuleHandler) Create(ctx context.Context, input *CreateRuleInput) (*CreateRuleOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	rule := &models.AutoResponseRule{
		TenantID:    tenantID,
		Name:        input.Body.Name,
		Description: input.Body.Description,
		IsActive:    input.Body.IsActive,
		Keywords:    input.Body.Keywords,
		Response:    input.Body.Response,
		Actions:     input.Body.Actions,
	}
	if input.Body.Trigger != nil {
		rule.Trigger = *input.Body.Trigger
	}
	if input.Body.ValidUntil != nil {
		t, err := time.Parse(time.RFC3339, *input.Body.ValidUntil)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid valid_until format, expected RFC3339", err)
		}
		rule.ValidUntil = &t
	}

	existing, err := h.repo.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load rules", err)
	}
	rule.Priority = 1
	for _, r := range existing {
		if r.Priority >= rule.Priority {
			rule.Priority = r.Priority + 1
		}
	}

	if err := h.repo.Create(ctx, rule); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to create rule", err)
	}

	return &CreateRuleOutput{Body: RuleFromModel(rule)}, nil
}

// UpdateRuleRequest is the request body for updating a rule.
type UpdateRuleRequest struct {
	Name        *string                 `json:"name,omitempty" doc:"Rule name" maxLength:"255"`
	Description *string                 `json:"description,omitempty" doc:"Rule description" maxLength:"1024"`
	IsActive    *bool                   `json:"is_active,omitempty" doc:"Whether the rule is active"`
	Keywords    []models.Keyword        `json:"keywords,omitempty" doc:"Replacement keyword list"`
	Trigger     *models.TriggerConfig   `json:"trigger,omitempty" doc:"Replacement condition groups"`
	Response    *models.ResponseContent `json:"response,omitempty" doc:"Replacement response payload"`
	Actions     []models.RuleAction     `json:"actions,omitempty" doc:"Replacement post-match actions"`
	ValidUntil  *string                 `json:"valid_until,omitempty" doc:"Expiry instant (RFC3339, empty string clears)"`
}

// UpdateRuleInput is the input for updating a rule.
type UpdateRuleInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Rule ID (ULID)"`
	Body     UpdateRuleRequest
}

// UpdateRuleOutput is the output for updating a rule.
type UpdateRuleOutput struct {
	Body RuleResponse
}

// Update updates an existing rule. Priority is not updatable here; use
// the reorder operation.
func (h *RuleHandler) Update(ctx context.Context, input *UpdateRuleInput) (*UpdateRuleOutput, error) {
	rule, err := h.loadTenantRule(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Body.Name != nil {
		rule.Name = *input.Body.Name
	}
	if input.Body.Description != nil {
		rule.Description = *input.Body.Description
	}
	if input.Body.IsActive != nil {
		rule.IsActive = input.Body.IsActive
	}
	if input.Body.Keywords != nil {
		rule.Keywords = input.Body.Keywords
	}
	if input.Body.Trigger != nil {
		rule.Trigger = *input.Body.Trigger
	}
	if input.Body.Response != nil {
		rule.Response = *input.Body.Response
	}
	if input.Body.Actions != nil {
		rule.Actions = input.Body.Actions
	}
	if input.Body.ValidUntil != nil {
		if *input.Body.ValidUntil == "" {
			rule.ValidUntil = nil
		} else {
			t, err := time.Parse(time.RFC3339, *input.Body.ValidUntil)
			if err != nil {
				return nil, huma.Error400BadRequest("invalid valid_until format, expected RFC3339", err)
			}
			rule.ValidUntil = &t
		}
	}

	if err := h.repo.Update(ctx, rule); err != nil {
		var validationErr models.ErrValidation
		if errors.As(err, &validationErr) {
			return nil, huma.Error422UnprocessableEntity(validationErr.Error())
		}
		return nil, huma.Error500InternalServerError("failed to update rule", err)
	}

	return &UpdateRuleOutput{Body: RuleFromModel(rule)}, nil
}

// DeleteRuleInput is the input for deleting a rule.
type DeleteRuleInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	ID       string `path:"id" doc:"Rule ID (ULID)"`
}

// DeleteRuleOutput is the output for deleting a rule.
type DeleteRuleOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// Delete deletes a rule.
func (h *RuleHandler) Delete(ctx context.Context, input *DeleteRuleInput) (*DeleteRuleOutput, error) {
	rule, err := h.loadTenantRule(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if err := h.repo.Delete(ctx, rule.ID); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete rule", err)
	}

	resp := &DeleteRuleOutput{}
	resp.Body.Message = fmt.Sprintf("rule %s deleted", input.ID)
	return resp, nil
}

// ReorderRulesRequest is the request body for reordering rules.
type ReorderRulesRequest struct {
	FromIndex int `json:"from_index" doc:"Current position of the rule (0 = highest priority)" minimum:"0"`
	ToIndex   int `json:"to_index" doc:"Target position" minimum:"0"`
}

// ReorderRulesInput is the input for reordering rules.
type ReorderRulesInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Body     ReorderRulesRequest
}

// ReorderRulesOutput is the output for reordering rules.
type ReorderRulesOutput struct {
	Body struct {
		Rules []RuleResponse `json:"rules"`
		Count int            `json:"count"`
	}
}

// Reorder moves a rule and persists dense descending priorities. A
// concurrent reorder surfaces as 409; the client should refresh and
// resubmit.
func (h *RuleHandler) Reorder(ctx context.Context, input *ReorderRulesInput) (*ReorderRulesOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	if err := h.engine.Reorder(ctx, tenantID, input.Body.FromIndex, input.Body.ToIndex); err != nil {
		switch {
		case errors.Is(err, engine.ErrIndexOutOfRange):
			return nil, huma.Error400BadRequest("reorder index out of range", err)
		case errors.Is(err, repository.ErrConflict):
			return nil, huma.Error409Conflict("rule set changed concurrently, refresh and retry", err)
		default:
			return nil, huma.Error500InternalServerError("failed to reorder rules", err)
		}
	}

	rules, err := h.repo.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load rules", err)
	}

	resp := &ReorderRulesOutput{}
	resp.Body.Rules = make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		resp.Body.Rules = append(resp.Body.Rules, RuleFromModel(r))
	}
	resp.Body.Count = len(rules)

	return resp, nil
}

// loadTenantRule loads a rule and verifies tenant ownership.
func (h *RuleHandler) loadTenantRule(ctx context.Context, tenantIDStr, idStr string) (*models.AutoResponseRule, error) {
	tenantID, err := models.ParseULID(tenantIDStr)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}
	id, err := models.ParseULID(idStr)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	rule, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get rule", err)
	}
	if rule == nil || rule.TenantID != tenantID {
		return nil, huma.Error404NotFound(fmt.Sprintf("rule %s not found", idStr))
	}
	return rule, nil
}
