// Package health is a gopsutil-driven load monitor using the familiar
// threshold/hysteresis check-loop shape, turned here from a
// notification-sending resource alert into a corrective action: under
// sustained CPU/memory pressure it corks the newest sink-inputs on
// every sink beyond a fixed per-sink budget, uncorking them once usage
// drops back below the threshold (the render path itself, Sink.Render,
// is never touched — this only ever calls the same SinkInput.Cork a
// client's own cork command would).
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pulsed/pulsed/internal/sndcore"
)

// Config thresholds mirror conf.HealthSettings.
type Config struct {
	PollInterval time.Duration
	CPUHighPercent float64
	MemHighPercent float64
	// HysteresisPercent keeps the monitor from flapping cork state on
	// noisy readings hovering right at the threshold.
	HysteresisPercent float64
	// MaxInputsPerSink is the budget a sink keeps uncorked under load;
	// the rest (newest first) get corked until usage recovers.
	MaxInputsPerSink int
}

// DefaultConfig matches conf.HealthSettings' viper defaults.
func DefaultConfig() Config {
	return Config{
 PollInterval: 5 * time.Second,
 CPUHighPercent: 90,
 MemHighPercent: 90,
 HysteresisPercent: 5,
 MaxInputsPerSink: 4,
	}
}

// Monitor periodically samples system load and corks/uncorks
// sink-inputs across core.Sinks in response.
type Monitor struct {
	cfg Config
	core *sndcore.Core
	log *slog.Logger

	degraded bool
	corked map[*sndcore.SinkInput]bool
}

// New builds a monitor bound to core.
func New(cfg Config, core *sndcore.Core, log *slog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
 cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.MaxInputsPerSink <= 0 {
 cfg.MaxInputsPerSink = DefaultConfig().MaxInputsPerSink
	}
	return &Monitor{cfg: cfg, core: core, log: log, corked: make(map[*sndcore.SinkInput]bool)}
}

// Run blocks, sampling load every PollInterval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.check()
	for {
 select {
 case <-ticker.C:
 m.check()
 case <-ctx.Done():
 return
 }
	}
}

func (m *Monitor) check() {
	cpuPct, err := cpu.Percent(0, false)
	if err != nil {
 if m.log != nil {
 m.log.Warn("health: cpu sample failed", "error", err)
 }
 return
	}
	memInfo, err := mem.VirtualMemory()
	if err != nil {
 if m.log != nil {
 m.log.Warn("health: memory sample failed", "error", err)
 }
 return
	}
	var cpuUsage float64
	if len(cpuPct) > 0 {
 cpuUsage = cpuPct[0]
	}
	high := cpuUsage >= m.cfg.CPUHighPercent || memInfo.UsedPercent >= m.cfg.MemHighPercent
	recovered := cpuUsage < m.cfg.CPUHighPercent-m.cfg.HysteresisPercent &&
 memInfo.UsedPercent < m.cfg.MemHighPercent-m.cfg.HysteresisPercent

	switch {
	case high && !m.degraded:
 m.degraded = true
 if m.log != nil {
 m.log.Warn("health: entering degraded mode", "cpu_percent", cpuUsage, "mem_percent", memInfo.UsedPercent)
 }
 m.corkOverflow()
	case recovered && m.degraded:
 m.degraded = false
 if m.log != nil {
 m.log.Info("health: recovered from degraded mode", "cpu_percent", cpuUsage, "mem_percent", memInfo.UsedPercent)
 }
 m.uncorkAll()
	}
}

// corkOverflow corks every sink-input beyond MaxInputsPerSink on each
// sink, oldest inputs kept running since they were already playing
// before the load spike.
func (m *Monitor) corkOverflow() {
	for _, sink := range m.core.Sinks.Values() {
 inputs := sink.Inputs()
 if len(inputs) <= m.cfg.MaxInputsPerSink {
 continue
 }
 for _, si := range inputs[m.cfg.MaxInputsPerSink:] {
 if m.corked[si] {
 continue
 }
 si.Cork(true)
 m.corked[si] = true
 }
	}
}

func (m *Monitor) uncorkAll() {
	for si := range m.corked {
 si.Cork(false)
 delete(m.corked, si)
	}
}
