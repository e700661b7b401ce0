// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_executor schedules fire-and-forget background work tied to
// a call. Keys are "<callID>:<name>-<unique>" so everything a call spawned
// can be cancelled by prefix when the call ends.
package internal_executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxbridgeai/pkg/commons"
	"github.com/voxbridgeai/pkg/utils"
)

// ErrTaskTimeout marks a task cancelled by its own deadline.
var ErrTaskTimeout = errors.New("task timed out")

// ErrTaskNotFound is returned by Await for keys never submitted or already
// swept.
var ErrTaskNotFound = errors.New("task not found")

const DefaultResultGrace = 2 * time.Minute

// KeyFor builds a task key scoped to one call.
func KeyFor(callID, name string) string {
	return fmt.Sprintf("%s:%s-%s", callID, name, uuid.NewString()[:8])
}

type task struct {
	key    string
	cancel context.CancelFunc
	done   chan struct{}

	result interface{}
	err    error
	// zero until the task completes; completed entries are swept after the
	// grace period
	completedAt time.Time
}

// Executor runs keyed background tasks with per-task timeouts, prefix
// cancellation and a short result cache.
type Executor struct {
	logger      commons.Logger
	resultGrace time.Duration

	mu    sync.Mutex
	tasks map[string]*task

	stopJanitor context.CancelFunc
}

type Option func(*Executor)

func WithResultGrace(d time.Duration) Option {
	return func(e *Executor) { e.resultGrace = d }
}

func New(logger commons.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger:      logger,
		resultGrace: DefaultResultGrace,
		tasks:       make(map[string]*task),
	}
	for _, opt := range opts {
		opt(e)
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	e.stopJanitor = cancel
	utils.Go(janitorCtx, func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				e.sweep(time.Now())
			}
		}
	})
	return e
}

// Submit starts fn under the given key. fn runs with a context bounded by
// both the parent context and the timeout (zero timeout means no deadline).
// Duplicate keys are rejected.
func (e *Executor) Submit(ctx context.Context, key string, timeout time.Duration, fn func(context.Context) (interface{}, error)) error {
	taskCtx, cancel := context.WithCancel(ctx)

	t := &task{key: key, cancel: cancel, done: make(chan struct{})}

	e.mu.Lock()
	if _, exists := e.tasks[key]; exists {
		e.mu.Unlock()
		cancel()
		return fmt.Errorf("task %q already scheduled", key)
	}
	e.tasks[key] = t
	e.mu.Unlock()

	var deadline <-chan time.Time
	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		deadline = timer.C
	}

	resultCh := make(chan struct{})
	var result interface{}
	var err error
	utils.Go(taskCtx, func() {
		defer close(resultCh)
		result, err = fn(taskCtx)
	})

	utils.Go(context.Background(), func() {
		if timer != nil {
			defer timer.Stop()
		}
		select {
		case <-resultCh:
			e.complete(t, result, err)
		case <-deadline:
			cancel()
			<-resultCh // let fn observe cancellation and unwind
			e.complete(t, nil, ErrTaskTimeout)
		case <-taskCtx.Done():
			<-resultCh
			e.complete(t, result, firstError(err, taskCtx.Err()))
		}
	})
	return nil
}

// Await blocks until the keyed task finishes and returns its cached outcome.
func (e *Executor) Await(ctx context.Context, key string) (interface{}, error) {
	e.mu.Lock()
	t, ok := e.tasks[key]
	e.mu.Unlock()
	if !ok {
		return nil, ErrTaskNotFound
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return t.result, t.err
}

// CancelPrefix signals cancellation to every task whose key starts with the
// prefix. Running tasks keep their slot until they unwind.
func (e *Executor) CancelPrefix(prefix string) {
	e.mu.Lock()
	var cancels []context.CancelFunc
	for key, t := range e.tasks {
		if strings.HasPrefix(key, prefix) {
			cancels = append(cancels, t.cancel)
		}
	}
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Pending reports how many tasks currently hold a slot (running or cached).
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Close stops the janitor. Running tasks are not cancelled; callers cancel
// by prefix on call teardown.
func (e *Executor) Close() {
	e.stopJanitor()
}

func (e *Executor) complete(t *task, result interface{}, err error) {
	e.mu.Lock()
	t.result = result
	t.err = err
	t.completedAt = time.Now()
	e.mu.Unlock()
	close(t.done)

	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warnw("background task failed", "key", t.key, "error", err)
	}
}

func (e *Executor) sweep(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, t := range e.tasks {
		if !t.completedAt.IsZero() && now.Sub(t.completedAt) > e.resultGrace {
			delete(e.tasks, key)
		}
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
