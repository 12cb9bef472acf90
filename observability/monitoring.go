package observability

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of the chat server's activity.
type Stats struct {
	MessagesStored uint64  `json:"messages_stored"`
	FramesRelayed  uint64  `json:"frames_relayed"`
	FramesDropped  uint64  `json:"frames_dropped"`
	ActiveSockets  int64   `json:"active_sockets"`
	ProcessCPU     float64 `json:"process_cpu_percent"`
	ProcessRAM     float32 `json:"process_ram_percent"`
	AllocMemMb     uint64  `json:"alloc_mem_mb"`
	NumGC          uint32  `json:"num_gc"`
	Goroutines     int     `json:"goroutines"`
}

// Monitor aggregates telemetry with atomic counters. Incrementing is
// non-blocking and safe from any goroutine; sampling happens in Listen.
type Monitor struct {
	log *slog.Logger

	messagesStored atomic.Uint64
	framesRelayed  atomic.Uint64
	framesDropped  atomic.Uint64
	activeSockets  atomic.Int64
	processCPU     atomic.Uint64 // math.Float64bits
	processRAM     atomic.Uint32 // math.Float32bits
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

func (m *Monitor) IncrMessagesStored() { m.messagesStored.Add(1) }
func (m *Monitor) IncrFramesRelayed()  { m.framesRelayed.Add(1) }
func (m *Monitor) IncrFramesDropped()  { m.framesDropped.Add(1) }
func (m *Monitor) SocketOpened()       { m.activeSockets.Add(1) }
func (m *Monitor) SocketClosed()       { m.activeSockets.Add(-1) }

// SetProcessUsage records the latest CPU/RAM sample from the heartbeat
// worker.
func (m *Monitor) SetProcessUsage(cpu float64, ram float32) {
	m.processCPU.Store(floatBits(cpu))
	m.processRAM.Store(float32Bits(ram))
}

// Snapshot returns the current counters together with Go runtime stats.
func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Stats{
		MessagesStored: m.messagesStored.Load(),
		FramesRelayed:  m.framesRelayed.Load(),
		FramesDropped:  m.framesDropped.Load(),
		ActiveSockets:  m.activeSockets.Load(),
		ProcessCPU:     floatFromBits(m.processCPU.Load()),
		ProcessRAM:     float32FromBits(m.processRAM.Load()),
		AllocMemMb:     mem.Alloc / 1024 / 1024,
		NumGC:          mem.NumGC,
		Goroutines:     runtime.NumGoroutine(),
	}
}

func floatBits(f float64) uint64       { return math.Float64bits(f) }
func floatFromBits(b uint64) float64   { return math.Float64frombits(b) }
func float32Bits(f float32) uint32     { return math.Float32bits(f) }
func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }

// Listen periodically logs a snapshot until the context is done.
func (m *Monitor) Listen(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return
		case <-ticker.C:
			stats := m.Snapshot()
			m.log.Debug("chat stats",
				"messages_stored", stats.MessagesStored,
				"frames_relayed", stats.FramesRelayed,
				"frames_dropped", stats.FramesDropped,
				"active_sockets", stats.ActiveSockets,
				"alloc_mem_mb", stats.AllocMemMb,
				"goroutines", stats.Goroutines,
			)
		}
	}
}
