package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is one run of a periodic task. Each run gets its own bounded context.
type Job func(ctx context.Context) error

type entry struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
}

// Scheduler runs registered jobs on their own tickers.
type Scheduler struct {
	log     *zerolog.Logger
	entries []entry

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(logger *zerolog.Logger) *Scheduler {
	return &Scheduler{log: logger}
}

// Every registers job to run each interval. If interval <= 0 it defaults to
// 1 minute. Jobs registered after Start are ignored until the next Start.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := interval
	if timeout > 30*time.Second {
		timeout = 30 * time.Second
	}
	s.entries = append(s.entries, entry{name: name, interval: interval, timeout: timeout, job: job})
}

// Start launches one goroutine per job. Calling Start twice has no effect.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	s.log.Debug().Str("job", e.name).Dur("interval", e.interval).Msg("scheduler job started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, e)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Str("job", e.name).Interface("panic", rec).Msg("scheduler job panicked")
		}
	}()
	if err := e.job(runCtx); err != nil {
		s.log.Warn().Err(err).Str("job", e.name).Msg("scheduler job failed")
	}
}

// Stop cancels every job and waits for in-flight runs. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Debug().Msg("scheduler stopped")
}
