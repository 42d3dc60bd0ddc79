package workers

import (
	"chat-rooms/contract"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*StatsWorker)(nil)

// StatsProvider returns the application counters logged with process stats.
type StatsProvider func() map[string]any

// StatsWorker logs process health (RSS, CPU, status) along with application
// counters every interval.
type StatsWorker struct {
	log      *slog.Logger
	interval time.Duration
	provider StatsProvider
}

func NewStatsWorker(log *slog.Logger, interval time.Duration, provider StatsProvider) *StatsWorker {
	return &StatsWorker{log: log, interval: interval, provider: provider}
}

func (w *StatsWorker) Run(ctx context.Context) error {
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
			w.report(p)
		}
	}
}

func (w *StatsWorker) report(p *process.Process) {
	attrs := make([]any, 0, 16)
	rss, cpu, status, err := selfStats(p)
	if err != nil {
		w.log.Warn("Failed to collect self stats", "error", err)
	} else {
		attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu, "status", status)
	}
	if w.provider != nil {
		for key, value := range w.provider() {
			attrs = append(attrs, key, value)
		}
	}
	w.log.Info("Server stats", attrs...)
}

// selfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
