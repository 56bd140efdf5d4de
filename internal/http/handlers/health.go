package handlers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/linarr/linarr/internal/database"
	"github.com/linarr/linarr/internal/version"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db        *database.DB
	logger    *slog.Logger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.DB, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, logger: logger, startedAt: time.Now()}
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Returns service health, database status, and host resource usage",
		Tags:        []string{"System"},
	}, h.Get)
}

// HealthOutput is the output for the health check.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse reports service and host health.
type HealthResponse struct {
	Status    string         `json:"status" doc:"Overall status: ok or degraded"`
	Version   string         `json:"version" doc:"Build version"`
	Commit    string         `json:"commit" doc:"Build commit SHA"`
	Uptime    string         `json:"uptime" doc:"Time since process start"`
	Database  DatabaseHealth `json:"database" doc:"Database connectivity"`
	System    SystemHealth   `json:"system" doc:"Host resource usage"`
	Timestamp string         `json:"timestamp" doc:"Response time (RFC3339)"`
}

// DatabaseHealth reports database connectivity.
type DatabaseHealth struct {
	Status string `json:"status" doc:"ok or unreachable"`
	Driver string `json:"driver" doc:"Configured driver"`
}

// SystemHealth reports host resource usage. Fields are zero when the
// platform does not expose the underlying metric.
type SystemHealth struct {
	Load1         float64 `json:"load_1m" doc:"1-minute load average"`
	Load5         float64 `json:"load_5m" doc:"5-minute load average"`
	Load15        float64 `json:"load_15m" doc:"15-minute load average"`
	MemoryUsedPct float64 `json:"memory_used_pct" doc:"Host memory usage percentage"`
	ProcessRSS    uint64  `json:"process_rss_bytes" doc:"Resident set size of this process"`
	Goroutines    int     `json:"goroutines" doc:"Current goroutine count"`
}

// Get returns the current health snapshot. The endpoint always answers
// 200; a failing dependency is reported in the body as degraded so
// orchestrators can still read the details.
func (h *HealthHandler) Get(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	now := time.Now()

	dbHealth := DatabaseHealth{Status: "ok", Driver: h.db.Driver()}
	status := "ok"
	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check database ping failed", slog.String("error", err.Error()))
		dbHealth.Status = "unreachable"
		status = "degraded"
	}

	resp := &HealthOutput{}
	resp.Body = HealthResponse{
		Status:    status,
		Version:   version.Version,
		Commit:    version.Commit,
		Uptime:    now.Sub(h.startedAt).Round(time.Second).String(),
		Database:  dbHealth,
		System:    h.systemHealth(ctx),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	return resp, nil
}

// systemHealth collects host metrics. Collection failures are logged
// at debug and leave the affected fields zero.
func (h *HealthHandler) systemHealth(ctx context.Context) SystemHealth {
	sys := SystemHealth{Goroutines: runtime.NumGoroutine()}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		sys.Load1 = avg.Load1
		sys.Load5 = avg.Load5
		sys.Load15 = avg.Load15
	} else {
		h.logger.DebugContext(ctx, "load average unavailable", slog.String("error", err.Error()))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sys.MemoryUsedPct = vm.UsedPercent
	} else {
		h.logger.DebugContext(ctx, "memory stats unavailable", slog.String("error", err.Error()))
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil {
			sys.ProcessRSS = memInfo.RSS
		}
	}

	return sys
}
