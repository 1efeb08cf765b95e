package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// orphanState tracks stuck-worker monitor metrics (thread-safe).
type orphanState struct {
	mu          sync.Mutex
	lastScan    time.Time
	stuckLogged int
}

// runOrphanDetection periodically scans for tasks whose last activity is
// stale: a Processing task that hasn't been touched in 1.5x the
// configured task timeout is logged as possibly stuck. Detection does
// not force the task to a terminal state — its own per-task timeout
// context already guarantees it eventually fails — this monitor exists
// purely to surface operator-visible signal for a crashed or wedged
// worker.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.scanForStuckTasks(ctx)
		}
	}
}

// scanForStuckTasks logs every Processing task whose last_activity_at is
// older than 1.5x the configured task timeout.
func (p *WorkerPool) scanForStuckTasks(ctx context.Context) {
	threshold := time.Duration(float64(p.config.TaskTimeout) * 1.5)

	stale, err := p.store.StaleProcessing(ctx, threshold)
	if err != nil {
		slog.Error("Stuck-task scan failed", "error", err)
		return
	}

	p.orphans.mu.Lock()
	p.orphans.lastScan = time.Now()
	p.orphans.mu.Unlock()

	if len(stale) == 0 {
		return
	}

	for _, task := range stale {
		slog.Warn("Task possibly stuck",
			"task_id", task.ID,
			"claimed_by", task.ClaimedBy,
			"last_activity", task.LastActivityAt,
			"threshold", threshold)
	}

	p.orphans.mu.Lock()
	p.orphans.stuckLogged += len(stale)
	p.orphans.mu.Unlock()
}
