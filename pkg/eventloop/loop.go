// Package eventloop provides the shared asynchronous execution resource that
// plugins use once the application is running. Posted tasks run serially in
// FIFO order on the goroutine calling Run; submitted tasks run on a bounded
// worker pool.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

const (
	defaultWorkers   = 64
	defaultQueueHint = 256
)

// Config configures a Loop.
type Config struct {
	// Workers bounds the number of concurrently running Go tasks.
	Workers int
	// QueueHint sizes the strand's initial backing storage.
	QueueHint int64
	// PanicHandler receives values recovered from panicking tasks.
	PanicHandler func(recovered any)
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{Workers: defaultWorkers, QueueHint: defaultQueueHint}
}

// Loop is the application's event loop.
type Loop struct {
	pool     *ants.Pool
	strand   *queue.Queue
	onPanic  func(any)
	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a Loop. The loop does not process posted tasks until Run is called.
func New(cfg Config) (*Loop, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueHint <= 0 {
		cfg.QueueHint = defaultQueueHint
	}
	onPanic := cfg.PanicHandler
	if onPanic == nil {
		onPanic = func(any) {}
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(recovered interface{}) {
		onPanic(recovered)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Loop{
		pool:    pool,
		strand:  queue.New(cfg.QueueHint),
		onPanic: onPanic,
		stopped: make(chan struct{}),
	}, nil
}

// Post queues task on the serial strand.
func (l *Loop) Post(task func()) error {
	if task == nil {
		return nil
	}
	if err := l.strand.Put(task); err != nil {
		if errors.Is(err, queue.ErrDisposed) {
			return apperrors.ErrLoopStopped
		}
		return err
	}
	return nil
}

// Go runs task on the worker pool.
func (l *Loop) Go(task func()) error {
	if task == nil {
		return nil
	}
	if err := l.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return apperrors.ErrLoopStopped
		}
		return err
	}
	return nil
}

// Run processes posted tasks until Stop is called or ctx is done. Tasks still
// queued when the loop stops are dropped.
func (l *Loop) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-l.stopped:
		}
	}()

	for {
		items, err := l.strand.Get(1)
		if err != nil {
			if errors.Is(err, queue.ErrDisposed) {
				return nil
			}
			return err
		}
		for _, item := range items {
			if task, ok := item.(func()); ok {
				l.runTask(task)
			}
		}
	}
}

// Stop ends Run and rejects further posts. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopped)
		l.strand.Dispose()
	})
}

// Done is closed once the loop has been stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

// Running returns the number of busy pool workers.
func (l *Loop) Running() int {
	return l.pool.Running()
}

// Release stops the loop and frees the worker pool.
func (l *Loop) Release() {
	l.Stop()
	l.pool.Release()
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.onPanic(recovered)
		}
	}()
	task()
}
