package handlers

import (
	"context"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/linarr/linarr/internal/database"
	"github.com/linarr/linarr/internal/version"
)

// SystemHandler handles system information endpoints.
type SystemHandler struct {
	db *database.DB
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(db *database.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Register registers the system routes with the API.
func (h *SystemHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getSystemInfo",
		Method:      "GET",
		Path:        "/api/v1/system",
		Summary:     "Get system information",
		Description: "Returns build info, host details, runtime stats, and database pool statistics",
		Tags:        []string{"System"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "getVersion",
		Method:      "GET",
		Path:        "/api/v1/version",
		Summary:     "Get version",
		Tags:        []string{"System"},
	}, h.Version)
}

// SystemInfoOutput is the output for system information.
type SystemInfoOutput struct {
	Body struct {
		Version  version.Info   `json:"version" doc:"Build version info"`
		Host     HostInfo       `json:"host" doc:"Host details"`
		Runtime  RuntimeInfo    `json:"runtime" doc:"Go runtime stats"`
		Database map[string]any `json:"database" doc:"Connection pool statistics"`
	}
}

// HostInfo describes the host machine.
type HostInfo struct {
	Hostname string `json:"hostname,omitempty" doc:"Host name"`
	OS       string `json:"os,omitempty" doc:"Operating system"`
	Platform string `json:"platform,omitempty" doc:"OS distribution"`
	Uptime   string `json:"uptime,omitempty" doc:"Host uptime"`
	CPUs     int    `json:"cpus" doc:"Logical CPU count"`
}

// RuntimeInfo describes the Go runtime state.
type RuntimeInfo struct {
	Goroutines   int    `json:"goroutines" doc:"Current goroutine count"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes" doc:"Allocated heap bytes"`
	HeapSys      uint64 `json:"heap_sys_bytes" doc:"Heap bytes obtained from the OS"`
	NumGC        uint32 `json:"num_gc" doc:"Completed GC cycles"`
	LastGCPaused uint64 `json:"last_gc_pause_ns" doc:"Most recent GC pause in nanoseconds"`
}

// Get returns a system information snapshot.
func (h *SystemHandler) Get(ctx context.Context, _ *struct{}) (*SystemInfoOutput, error) {
	resp := &SystemInfoOutput{}
	resp.Body.Version = version.GetInfo()
	resp.Body.Host = hostInfo(ctx)
	resp.Body.Runtime = runtimeInfo()

	stats, err := h.db.Stats()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read database stats", err)
	}
	resp.Body.Database = stats

	return resp, nil
}

// VersionOutput is the output for the version endpoint.
type VersionOutput struct {
	Body version.Info
}

// Version returns build version information.
func (h *SystemHandler) Version(_ context.Context, _ *struct{}) (*VersionOutput, error) {
	return &VersionOutput{Body: version.GetInfo()}, nil
}

// hostInfo collects host details, leaving fields empty on failure.
func hostInfo(ctx context.Context) HostInfo {
	info := HostInfo{}

	if counts, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUs = counts
	} else {
		info.CPUs = runtime.NumCPU()
	}

	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return info
	}
	info.Hostname = hi.Hostname
	info.OS = hi.OS
	info.Platform = hi.Platform
	info.Uptime = (time.Duration(hi.Uptime) * time.Second).String()
	return info
}

func runtimeInfo() RuntimeInfo {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var lastPause uint64
	if ms.NumGC > 0 {
		lastPause = ms.PauseNs[(ms.NumGC+255)%256]
	}

	return RuntimeInfo{
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    ms.HeapAlloc,
		HeapSys:      ms.HeapSys,
		NumGC:        ms.NumGC,
		LastGCPaused: lastPause,
	}
}
