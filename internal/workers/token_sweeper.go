// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"
	"time"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/store"
)

// defaultSweepInterval is used when no interval is configured.
const defaultSweepInterval = 10 * time.Minute

// TokenSweeper periodically purges used-link-token entries older than the
// link TTL. A token past its TTL can no longer verify, so its replay
// record is dead weight.
type TokenSweeper struct {
	accountStore store.AccountStore
	interval     time.Duration

	// now is the clock source, injectable for tests.
	now func() time.Time

	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewTokenSweeper constructs a sweeper over the account store's used-token
// set.
func NewTokenSweeper(accountStore store.AccountStore, interval time.Duration, m *metrics.Metrics, logger *logger.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &TokenSweeper{
		accountStore: accountStore,
		interval:     interval,
		now:          time.Now,
		metrics:      m,
		logger:       logger,
	}
}

// Run starts the sweep loop in its own goroutine. The loop stops when ctx
// is cancelled.
func (s *TokenSweeper) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", s.interval).Msg("link token sweeper started")

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				s.logger.Info().Msg("link token sweeper stopped")
				return
			}
		}
	}()
}

func (s *TokenSweeper) sweep(ctx context.Context) {
	cutoff := s.now().Add(-crypto.LinkTokenTTL)

	removed, err := s.accountStore.RemoveExpiredLinkTokens(ctx, cutoff)
	if err != nil {
		s.logger.Err(err).Msg("link token sweep ended with error")
		return
	}

	if removed > 0 {
		s.metrics.SweptLinkTokens.Add(float64(removed))
		s.logger.Info().Int("removed", removed).Msg("expired link tokens swept")
	}
}
