package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// Sweeper periodically removes expired used-response records, independent
// of request traffic.
type Sweeper struct {
	tracker *ResponseTracker
	logger  *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSweeper(tracker *ResponseTracker, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		tracker:  tracker,
		logger:   logger,
		interval: defaultSweepInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the sweep on a periodic schedule in a background goroutine.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("used response sweeper started",
			zap.Duration("interval", s.interval),
			zap.Duration("window", s.tracker.Window()))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.RunOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("used response sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunOnce performs a single sweep and returns the number of removed records.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	deleted, err := s.tracker.Sweep(ctx, s.tracker.now())
	if err != nil {
		s.logger.Error("failed to sweep used responses", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.logger.Info("swept expired used responses", zap.Int64("count", deleted))
	}
	return deleted
}
