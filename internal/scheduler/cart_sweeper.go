package scheduler

import (
	"context"
	"time"

	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = 2 * time.Minute

// Sweeper removes carts last saved before a cutoff; every cart.Store
// implements it.
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time) (int, error)
}

// SweepRecorder receives the number of carts removed by each run.
type SweepRecorder interface {
	CartsSwept(n int)
}

// CartSweeper periodically drops abandoned carts from the durable store.
type CartSweeper struct {
	cron     *cron.Cron
	store    Sweeper
	ttl      time.Duration
	schedule string
	recorder SweepRecorder
	now      func() time.Time
}

// NewCartSweeper creates a sweeper that runs on schedule (standard cron
// syntax or descriptors such as "@every 1h") and removes carts idle for
// longer than ttl.
func NewCartSweeper(store Sweeper, ttl time.Duration, schedule string, recorder SweepRecorder) *CartSweeper {
	return &CartSweeper{
		cron:     cron.New(),
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		recorder: recorder,
		now:      time.Now,
	}
}

func (s *CartSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for cart sweep", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart sweeper started", map[string]interface{}{
		"schedule": s.schedule,
		"ttl":      s.ttl.String(),
	})
	return nil
}

// RunOnce removes every cart idle for longer than the TTL.
func (s *CartSweeper) RunOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)
	removed, err := s.store.Sweep(ctx, cutoff)
	if err != nil {
		logger.Error("Cart sweep failed", err, map[string]interface{}{
			"cutoff": cutoff,
		})
	}
	if removed > 0 {
		logger.Info("Abandoned carts removed", map[string]interface{}{
			"removed": removed,
		})
	}
	if s.recorder != nil {
		s.recorder.CartsSwept(removed)
	}
	return removed
}

// Stop waits for a running sweep to finish.
func (s *CartSweeper) Stop() {
	logger.Info("Stopping cart sweeper...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart sweeper stopped", nil)
}
