package workers

import (
	"context"
	"time"

	"rentezy-chat/observability"
)

// MonitoringWorker periodically logs a stats snapshot.
type MonitoringWorker struct {
	monitor  *observability.Monitor
	interval time.Duration
}

func NewMonitoringWorker(monitor *observability.Monitor, interval time.Duration) *MonitoringWorker {
	return &MonitoringWorker{monitor: monitor, interval: interval}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	w.monitor.Listen(ctx, w.interval)
	return nil
}
