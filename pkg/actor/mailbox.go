// Package actor provides the concurrency primitives shared by LandKeeper and
// TransportAdapter: a single-consumer serial mailbox and a non-blocking
// single-flight latch. Generalizes a per-session critical section guarded
// by a mutex into a queue, so a handler can call out to a suspension point
// (Connection.send, another actor) without holding a lock across it.
package actor

import (
	"context"
	"fmt"
)

// job is one submitted unit of work plus the channel its result is
// delivered on.
type job struct {
	fn     func(ctx context.Context) (interface{}, error)
	result chan jobResult
}

type jobResult struct {
	value interface{}
	err   error
}

// Mailbox is a single-consumer serial executor: every submitted function
// runs to completion, in FIFO submission order, on one dedicated goroutine.
// This is the actor primitive behind LandKeeper and TransportAdapter (spec
// §5, §9 "Coroutine control flow").
type Mailbox struct {
	queue  chan job
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMailbox starts the consumer goroutine and returns a ready Mailbox.
// queueDepth bounds how many pending submissions may be buffered before
// Submit blocks the caller.
func NewMailbox(queueDepth int) *Mailbox {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mailbox{
		queue:  make(chan job, queueDepth),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go m.run()
	return m
}

func (m *Mailbox) run() {
	defer close(m.done)
	for {
		select {
		case j, ok := <-m.queue:
			if !ok {
				return
			}
			if m.ctx.Err() != nil {
				// Shutdown won the race with this dequeue: the job never
				// started, so it is drained like the rest of the queue.
				j.result <- jobResult{err: ErrShutDown}
				m.drain()
				return
			}
			v, err := j.fn(m.ctx)
			j.result <- jobResult{value: v, err: err}
		case <-m.ctx.Done():
			// Drain whatever is already queued with a best-effort pass so
			// callers waiting on Submit don't hang forever.
			m.drain()
			return
		}
	}
}

func (m *Mailbox) drain() {
	for {
		select {
		case j := <-m.queue:
			j.result <- jobResult{err: ErrShutDown}
		default:
			return
		}
	}
}

// ErrShutDown is returned by Submit once the mailbox has been closed.
var ErrShutDown = fmt.Errorf("actor: mailbox is shut down")

// Submit enqueues fn and blocks until it has run and produced a result (or
// the mailbox is shut down first). fn itself may call Submit on a
// *different* actor's mailbox, or perform I/O; it must never call Submit on
// *this* mailbox, since the single consumer goroutine is already busy
// running fn and would never reach the nested job.
func (m *Mailbox) Submit(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	select {
	case <-m.ctx.Done():
		return nil, ErrShutDown
	default:
	}

	j := job{fn: fn, result: make(chan jobResult, 1)}

	select {
	case m.queue <- j:
	case <-m.ctx.Done():
		return nil, ErrShutDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.result:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown cancels the mailbox's context; in-flight jobs run to completion,
// queued-but-unstarted jobs are drained with ErrShutDown. Shutdown returns
// once the consumer goroutine has fully exited.
func (m *Mailbox) Shutdown() {
	m.cancel()
	<-m.done
}
