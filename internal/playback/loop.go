// Package playback runs the continuous redraw loop: a cancellable repeating
// task driven by a clock, with a single ownership token.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Task is called once per tick with the playback time.
type Task func(ctx context.Context, t time.Duration) error

// ErrStop, returned by a Task, ends the run without an error. A task must
// use it instead of calling Stop or Start on its own loop: both wait for the
// task to return and would block forever.
var ErrStop = errors.New("playback: stop requested")

// Loop runs at most one Task at a time. Start replaces the running task;
// Stop is synchronous and idempotent.
type Loop struct {
	ctl    sync.Mutex // serialises Start and Stop
	mu     sync.Mutex
	token  uint64
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	logger *slog.Logger
}

// NewLoop creates an idle loop. A nil logger discards output.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{logger: logger}
}

// Start stops any running task and arms task on clock. It returns the
// token of the new run. Must not be called from inside a task.
func (l *Loop) Start(clock Clock, task Task) uint64 {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	l.stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	l.token++
	token := l.token
	done := make(chan struct{})
	l.cancel, l.done, l.err = cancel, done, nil

	go l.run(ctx, token, done, clock, task)
	l.logger.Debug("loop started", "token", token)
	return token
}

func (l *Loop) run(ctx context.Context, token uint64, done chan struct{}, clock Clock, task Task) {
	defer close(done)
	var err error
	for t := range clock.Ticks(ctx) {
		if err = task(ctx, t); err != nil {
			break
		}
	}
	if errors.Is(err, ErrStop) || (errors.Is(err, context.Canceled) && ctx.Err() != nil) {
		err = nil
	}

	l.mu.Lock()
	if l.token == token {
		l.err = err
	}
	l.mu.Unlock()
	if err != nil {
		l.logger.Warn("loop stopped on error", "token", token, "err", err)
	}
}

// Stop cancels the running task and waits for it to exit. Must not be
// called from inside a task; return ErrStop there.
func (l *Loop) Stop() {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	l.stop()
}

func (l *Loop) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Debug("loop stopped")
}

// Wait blocks until the current run ends on its own (the clock ran out or
// the task failed) and returns the task error.
func (l *Loop) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Running reports whether a task is armed and has not finished.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Token identifies the latest run.
func (l *Loop) Token() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}
