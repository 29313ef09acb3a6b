// Package sweep runs the retention sweeper: a fixed-interval purge of
// archived tasks whose delete_after_at has passed.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/repo"
)

// Sweeper periodically purges expired archived tasks
type Sweeper struct {
	repo     *repo.Repository
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a sweeper with the given interval
func New(r *repo.Repository, interval time.Duration) *Sweeper {
	return &Sweeper{repo: r, interval: interval}
}

// RunOnce performs a single sweep
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.repo.PurgeExpired(ctx)
}

// Start sweeps immediately, then on every interval tick until Stop is called
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stop, s.done)
}

func (s *Sweeper) run(stop, done chan struct{}) {
	defer close(done)

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-stop:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	if _, err := s.repo.PurgeExpired(context.Background()); err != nil {
		logger.Error("retention sweep failed", logger.F("error", err))
	}
}

// Stop halts the timer and waits for an in-flight sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
