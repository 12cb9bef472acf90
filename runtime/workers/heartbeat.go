package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"rentezy-chat/observability"
)

// HeartbeatWorker samples the server's own CPU and RAM usage and feeds
// the monitor, so /stats reflects process health alongside the chat
// counters.
type HeartbeatWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, monitor: monitor, interval: interval}
}

// Run samples until the context is done.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cpu, ram, err := selfUsage(p)
			if err != nil {
				w.log.Error("failed to collect self stats", "error", err)
				continue
			}
			w.monitor.SetProcessUsage(cpu, ram)
		}
	}
}

func selfUsage(p *process.Process) (float64, float32, error) {
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	ramPercent, err := p.MemoryPercent()
	if err != nil {
		return 0, 0, err
	}
	return cpuPercent, ramPercent, nil
}
