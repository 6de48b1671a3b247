package game

import (
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/panjf2000/ants/v2"
)

const (
	defaultPoolSize = 64

	wheelTick = 100 * time.Millisecond
	wheelSize = 64
)

// Scheduler runs bot turns and other background work on a bounded worker
// pool, with delayed execution served by a timing wheel. One Scheduler is
// shared by every room, so concurrency stays bounded no matter how many bot
// games run at once.
type Scheduler struct {
	pool *ants.Pool
	tw   *timingwheel.TimingWheel
}

// NewScheduler creates and starts a Scheduler with the given pool size.
func NewScheduler(poolSize int) (*Scheduler, error) {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	pool, err := ants.NewPool(poolSize,
		ants.WithExpiryDuration(60*time.Second),
		ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	tw := timingwheel.NewTimingWheel(wheelTick, wheelSize)
	tw.Start()

	return &Scheduler{
		pool: pool,
		tw:   tw,
	}, nil
}

// Post submits f to the worker pool. If the pool rejects the task it falls
// back to a plain goroutine so game progress never stalls.
func (s *Scheduler) Post(f func()) {
	if err := s.pool.Submit(f); err != nil {
		go f()
	}
}

// Once schedules f to run on the pool after d.
func (s *Scheduler) Once(d time.Duration, f func()) {
	if d <= 0 {
		s.Post(f)
		return
	}
	s.tw.AfterFunc(d, func() {
		s.Post(f)
	})
}

// Stop stops the timing wheel and releases the pool. Pending delayed tasks
// are dropped.
func (s *Scheduler) Stop() {
	s.tw.Stop()
	s.pool.Release()
}
