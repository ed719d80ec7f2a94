package workers

import (
	"anon-chat/contract"
	"anon-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultRestartInterval = 200 * time.Millisecond

// Supervisor keeps the bot's long running workers alive until its context ends.
// A worker returning nil is done for good; an error or a panic gets it relaunched
// after restartInterval. Cancel is set by Run.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
}

// NewSupervisor waits restartInterval between two runs of a crashed worker.
// A zero interval falls back to 200ms.
func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run starts every added worker and blocks until all of them have returned.
// Stop or a cancelled parent ends the run.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start launches worker in its own goroutine, tracked by Run.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, worker)
	}()
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker) {
	log := s.log.With("worker", contract.GetWorkerName(worker))
	for restarts := 0; ; restarts++ {
		err := runOnce(ctx, worker)
		switch {
		case ctx.Err() != nil:
			log.Info("Worker stopped", "restarts", restarts)
			return
		case err == nil:
			log.Info("Worker done", "restarts", restarts)
			return
		}

		log.Warn("Worker failed", "error", err, "restarts", restarts, "retry_in", s.restartInterval)
		if !s.pause(ctx) {
			log.Info("Worker stopped", "restarts", restarts)
			return
		}
	}
}

// runOnce turns a panic of the worker into an ErrWorkerPanic error.
func runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// pause reports false when ctx ends before the restart interval elapses.
func (s *Supervisor) pause(ctx context.Context) bool {
	timer := time.NewTimer(s.restartInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stop cancels the context handed to the workers. Run returns once they have all exited.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
