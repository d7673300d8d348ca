package engine

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Cycler is anything that can run one evaluation pass.
type Cycler interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Schedule registers c on a fixed interval. Singleton mode keeps a slow cycle from
// overlapping the next tick; the in-engine lock covers manual triggers as well.
func Schedule(ctx context.Context, c Cycler, interval time.Duration, log *zap.Logger) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(interval).Do(func() {
		if _, err := c.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			log.Error("Scheduled cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
