package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is anything that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger adapts a go-redis client. A nil client reports "disabled".
type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

type HealthChecker struct {
	db      Pinger
	redis   Pinger
	started time.Time
	system  func() SystemHealth
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database ComponentHealth  `json:"database"`
	Redis    *ComponentHealth `json:"redis,omitempty"`
	System   *SystemHealth    `json:"system,omitempty"`
	Uptime   string           `json:"uptime,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

// SystemHealth is the host view from gopsutil.
type SystemHealth struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      string  `json:"disk_used"`
	DiskTotal     string  `json:"disk_total"`
}

// NewHealthChecker takes the database and, optionally, redis (nil when
// running without it).
func NewHealthChecker(db Pinger, redis Pinger) *HealthChecker {
	return &HealthChecker{db: db, redis: redis, started: time.Now(), system: collectSystem}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := check(h.db)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed adds redis and host metrics. Redis being down degrades
// the status; the service keeps working on its in-process fallbacks.
func (h *HealthChecker) CheckDetailed() HealthStatus {
	status := h.CheckBasic()
	if h.redis != nil {
		r := check(h.redis)
		status.Redis = &r
		if r.Status != "healthy" && status.Status == "healthy" {
			status.Status = "degraded"
		}
	} else {
		status.Redis = &ComponentHealth{Status: "disabled"}
	}
	sys := h.system()
	status.System = &sys
	status.Uptime = formatUptime(int(time.Since(h.started).Seconds()))
	return status
}

func check(p Pinger) ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func collectSystem() SystemHealth {
	var s SystemHealth
	if cpuPercents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		s.CPUPercent = cpuPercents[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = memStats.UsedPercent
		s.MemoryUsed = formatBytes(memStats.Used)
		s.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		s.DiskPercent = diskStats.UsedPercent
		s.DiskUsed = formatBytes(diskStats.Used)
		s.DiskTotal = formatBytes(diskStats.Total)
	}
	return s
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
