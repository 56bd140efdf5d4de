package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// ResponseLogHandler handles response log query endpoints.
type ResponseLogHandler struct {
	repo repository.ResponseLogRepository
}

// NewResponseLogHandler creates a new response log handler.
func NewResponseLogHandler(repo repository.ResponseLogRepository) *ResponseLogHandler {
	return &ResponseLogHandler{repo: repo}
}

// Register registers the response log routes with the API.
func (h *ResponseLogHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listResponseLogs",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}/logs",
		Summary:     "List response logs",
		Description: "Returns the tenant's response logs, newest first",
		Tags:        []string{"Logs"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getResponseStats",
		Method:      "GET",
		Path:        "/api/v1/tenants/{tenantId}/logs/stats",
		Summary:     "Get response statistics",
		Description: "Returns per-day and per-rule response totals for the requested window",
		Tags:        []string{"Logs"},
	}, h.Stats)
}

// ListLogsInput is the input for listing response logs.
type ListLogsInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Limit    int    `query:"limit" doc:"Maximum rows to return" default:"50" minimum:"1" maximum:"500"`
	Offset   int    `query:"offset" doc:"Rows to skip" default:"0" minimum:"0"`
}

// ListLogsOutput is the output for listing response logs.
type ListLogsOutput struct {
	Body struct {
		Logs   []*models.ResponseLog `json:"logs" doc:"Response log rows, newest first"`
		Total  int64                 `json:"total" doc:"Total rows for the tenant"`
		Limit  int                   `json:"limit" doc:"Applied limit"`
		Offset int                   `json:"offset" doc:"Applied offset"`
	}
}

// List returns a page of the tenant's response logs.
func (h *ResponseLogHandler) List(ctx context.Context, input *ListLogsInput) (*ListLogsOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	logs, total, err := h.repo.GetByTenant(ctx, tenantID, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list response logs", err)
	}

	resp := &ListLogsOutput{}
	resp.Body.Logs = logs
	resp.Body.Total = total
	resp.Body.Limit = input.Limit
	resp.Body.Offset = input.Offset
	return resp, nil
}

// StatsInput is the input for response statistics.
type StatsInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Days     int    `query:"days" doc:"Window size in days" default:"30" minimum:"1" maximum:"365"`
}

// StatsOutput is the output for response statistics.
type StatsOutput struct {
	Body struct {
		Since  string                 `json:"since" doc:"Window start (RFC3339)"`
		ByDay  []repository.DayCount  `json:"by_day" doc:"Per-day totals grouped by status"`
		ByRule []repository.RuleCount `json:"by_rule" doc:"Per-rule totals, busiest first"`
	}
}

// Stats returns aggregate response counts for the requested window.
func (h *ResponseLogHandler) Stats(ctx context.Context, input *StatsInput) (*StatsOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -input.Days)

	byDay, err := h.repo.CountByDay(ctx, tenantID, since)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to aggregate daily stats", err)
	}

	byRule, err := h.repo.CountByRule(ctx, tenantID, since)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to aggregate rule stats", err)
	}

	resp := &StatsOutput{}
	resp.Body.Since = since.Format(time.RFC3339)
	resp.Body.ByDay = byDay
	resp.Body.ByRule = byRule
	return resp, nil
}
