package engine

import (
	"context"
	"sync"

	"formcheck/internal/platform/metrics"
)

// Loop runs tasks one at a time, in the order they were posted, on the
// goroutine that calls Run. Every mutation of form fields happens inside a
// task, so fields need no locking of their own.
type Loop struct {
	mu      sync.Mutex
	tasks   []func(context.Context)
	wake    chan struct{}
	metrics *metrics.Metrics
}

// NewLoop creates an idle loop. m may be nil.
func NewLoop(m *metrics.Metrics) *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		metrics: m,
	}
}

// Post queues task and returns immediately. It is safe from any goroutine,
// including from inside a task.
func (l *Loop) Post(task func(ctx context.Context)) {
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.metrics.SetQueueDepth(len(l.tasks))
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes tasks until ctx is done. Tasks receive ctx.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if task, ok := l.next(); ok {
			task(ctx)
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Do posts fn and waits for it to finish. fn receives the caller's ctx so
// request-scoped values travel with it. If ctx ends first, Do returns its
// error and fn may still run later.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	l.Post(func(context.Context) {
		defer close(done)
		fn(ctx)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) next() (func(context.Context), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	task := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	l.metrics.SetQueueDepth(len(l.tasks))
	return task, true
}
