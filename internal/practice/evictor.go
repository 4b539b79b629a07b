package practice

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Evictor periodically drops idle managers from a Service.
type Evictor struct {
	svc      *Service
	interval time.Duration
	idle     time.Duration
	logger   zerolog.Logger
}

func NewEvictor(svc *Service, interval, idle time.Duration, logger zerolog.Logger) *Evictor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Evictor{
		svc:      svc,
		interval: interval,
		idle:     idle,
		logger:   logger.With().Str("component", "practice_evictor").Logger(),
	}
}

// Run blocks until ctx is done.
func (e *Evictor) Run(ctx context.Context) error {
	if e.svc == nil || e.idle <= 0 {
		return nil
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := e.svc.Evict(e.idle); n > 0 {
				e.logger.Debug().Int("evicted", n).Msg("dropped idle sessions from memory")
			}
		}
	}
}
