package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type boardRegistry interface {
	Tenants() []string
	Invalidate(ctx context.Context, tenantID string) error
}

// BoardResyncWorker periodically reloads every open board. It catches
// changes whose notification was lost while the listener was reconnecting.
type BoardResyncWorker struct {
	registry     boardRegistry
	tickInterval time.Duration
}

func NewBoardResyncWorker(registry boardRegistry, interval time.Duration) *BoardResyncWorker {
	return &BoardResyncWorker{
		registry:     registry,
		tickInterval: interval,
	}
}

// Start blocks until ctx is done. A non-positive interval disables it.
func (w *BoardResyncWorker) Start(ctx context.Context) {
	if w.tickInterval <= 0 {
		return
	}
	log.WithField("interval", w.tickInterval.String()).Info("board resync worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("board resync worker stopped")
			return
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *BoardResyncWorker) resync(ctx context.Context) int {
	failed := 0
	for _, tenantID := range w.registry.Tenants() {
		if ctx.Err() != nil {
			return failed
		}
		if err := w.registry.Invalidate(ctx, tenantID); err != nil {
			failed++
			log.WithField("tenant_id", tenantID).WithError(err).Warn("board resync failed")
		}
	}
	return failed
}
