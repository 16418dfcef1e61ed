package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
)

type Job interface{ Run(ctx context.Context) }

type FuncJob func(ctx context.Context)

func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// safeRun 捕获任务 panic，避免拖垮调度 goroutine
func safeRun(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduler: job panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	job.Run(ctx)
}

// Scheduler runs interval and time-of-day jobs until Stop is called.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Stop() { s.cancel() }

// Every runs job immediately and then once per d.
func (s *Scheduler) Every(d time.Duration, job Job) { go s.loopEvery(d, job) }

func (s *Scheduler) OnceAfter(d time.Duration, job Job) { go s.onceAfter(d, job) }

func (s *Scheduler) loopEvery(d time.Duration, job Job) {
	if s.ctx.Err() != nil {
		return
	}
	safeRun(s.ctx, job)
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			safeRun(s.ctx, job)
		}
	}
}

func (s *Scheduler) onceAfter(d time.Duration, job Job) {
	select {
	case <-s.ctx.Done():
		return
	case <-time.After(d):
		safeRun(s.ctx, job)
	}
}
