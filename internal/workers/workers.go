package workers

import (
	"context"

	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/store"
)

type Workers struct {
	workers []Worker
}

// NewWorkers assembles the background workers of the server. Currently
// that is the used-link-token sweeper.
func NewWorkers(storages *store.Storages, cfg config.Workers, m *metrics.Metrics, logger *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			NewTokenSweeper(storages.AccountStore, cfg.SweepInterval, m, logger),
		},
	}
}

func (w *Workers) Run(ctx context.Context) {
	for _, worker := range w.workers {
		worker.Run(ctx)
	}
}
