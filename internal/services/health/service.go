package health

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const pingTimeout = 2 * time.Second

// Service reports process and dependency health.
type Service struct {
	DB *sql.DB
	// Store names the log store in the payload ("memory", "sqlite", "postgres").
	Store string
}

// NewService constructs a health service. db may be nil for the in-memory log store.
func NewService(db *sql.DB, store string) *Service {
	if store == "" {
		store = "memory"
	}
	return &Service{DB: db, Store: store}
}

// Status is the health payload.
type Status struct {
	OK       bool      `json:"ok"`
	LogStore string    `json:"logStore"`
	Database string    `json:"database,omitempty"`
	Host     *HostStat `json:"host,omitempty"`
}

// HostStat is a best-effort snapshot of the machine the process runs on.
type HostStat struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
	Goroutines    int     `json:"goroutines"`
}

// Check pings the database when one is configured. Host stats never affect OK.
func (s *Service) Check(ctx context.Context) Status {
	st := Status{OK: true, LogStore: s.Store, Host: hostStat(ctx)}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "ok"
	return st
}

func hostStat(ctx context.Context) *HostStat {
	hs := &HostStat{Goroutines: runtime.NumGoroutine()}
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		hs.MemoryPercent = v.UsedPercent
	}
	// zero interval compares against the previous call instead of sleeping
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		hs.CPUPercent = pct[0]
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		hs.UptimeSeconds = up
	}
	return hs
}
