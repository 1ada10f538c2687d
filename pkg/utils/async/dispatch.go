package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handler is a unit of work run outside the request that created it
type Handler func(ctx context.Context) error

// Queue runs dispatched handlers one at a time in arrival order, each with a context
// detached from the caller's cancellation but carrying its logger. Panics are recovered and
// logged. Pipelines share the GitOps worktree, so two of them must never overlap.
type Queue struct {
	mu      sync.Mutex
	pending []queued
	running bool
	wg      sync.WaitGroup
}

type queued struct {
	ctx     context.Context
	handler Handler
}

// NewQueue returns an empty Queue
func NewQueue() *Queue {
	return &Queue{}
}

// Dispatch appends handler to the queue and returns immediately
func (q *Queue) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	q.wg.Add(1)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, queued{ctx: newBackgroundContext(ctx), handler: handler})
	if !q.running {
		q.running = true
		go q.drain()
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		execute(next.ctx, next.handler)
		q.wg.Done()
	}
}

// Wait blocks until every dispatched handler has finished or ctx is done
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		left := len(q.pending)
		q.mu.Unlock()
		return goerr.Wrap(ctx.Err(), "queued handlers did not finish", goerr.V("pending", left))
	}
}

func execute(ctx context.Context, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			ctxlog.From(ctx).Error("panic in async handler",
				"recover", r,
				"stack", string(stack))
		}
	}()

	if err := handler(ctx); err != nil {
		ctxlog.From(ctx).Error("error in async handler", "error", err)
	}
}

// newBackgroundContext returns context.Background() carrying the ctxlog logger of ctx
func newBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
