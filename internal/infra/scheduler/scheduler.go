package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultRunTimeout = 30 * time.Second

// Job is one periodic unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a Job every interval until stopped.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a scheduler. If interval <= 0 it defaults to 1 minute.
func New(name string, interval time.Duration, job Job, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "scheduler").Str("job", name).Logger()
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		log:      &l,
		done:     make(chan struct{}),
	}
}

// Start runs the job once right away, then on every tick.
// Calling Start multiple times has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Debug().Dur("interval", s.interval).Msg("started")
	s.runOnce()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Debug().Msg("context cancelled; stopping")
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	timeout := defaultRunTimeout
	if s.interval < timeout {
		timeout = s.interval
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := s.job(runCtx); err != nil {
		s.log.Warn().Err(err).Msg("job failed")
	}
}

// Stop cancels the scheduler and waits for the loop to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
}
