package worker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// Lanes executes work serially per key and concurrently across keys. Work
// submitted with the same key lands on the same lane, a single-goroutine
// FIFO, so submission order is preserved for that key. Different keys may
// hash to the same lane; that only narrows concurrency, never ordering.
type Lanes[T any] struct {
	laneCount int
	queueSize int
	processor func(context.Context, T) error

	lanes []chan T
	wg    *sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// NewLanes creates a keyed lane executor. laneCount and queueSize fall back
// to defaults when non-positive. A nil processor panics.
func NewLanes[T any](laneCount, queueSize int, processor func(context.Context, T) error) *Lanes[T] {
	if laneCount <= 0 {
		laneCount = 16
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	lanes := make([]chan T, laneCount)
	for i := range lanes {
		lanes[i] = make(chan T, queueSize)
	}

	return &Lanes[T]{
		laneCount: laneCount,
		queueSize: queueSize,
		processor: processor,
		lanes:     lanes,
	}
}

// Start launches one goroutine per lane.
func (l *Lanes[T]) Start(ctx context.Context) error {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()

	if l.started {
		return ErrPoolAlreadyStarted
	}

	l.wg = &sync.WaitGroup{}
	for _, lane := range l.lanes {
		l.wg.Add(1)
		go l.run(ctx, lane)
	}

	l.started = true
	return nil
}

// Submit enqueues work on the lane owned by key. Blocks while the lane's
// queue is full so that back-pressure, not reordering, is the overflow
// behavior for a single key's stream.
func (l *Lanes[T]) Submit(ctx context.Context, key string, work T) error {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return ErrPoolNotStarted
	}
	if l.stopped {
		l.lifecycleMu.Unlock()
		return ErrPoolStopped
	}
	lane := l.lanes[l.laneFor(key)]
	l.lifecycleMu.Unlock()

	select {
	case lane <- work:
		l.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes all lanes and waits for in-flight work up to the timeout.
func (l *Lanes[T]) Stop(timeout time.Duration) error {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()

	if !l.started || l.stopped {
		return nil
	}
	l.stopped = true

	for _, lane := range l.lanes {
		close(lane)
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns submitted/processed/failed counters.
func (l *Lanes[T]) Stats() (submitted, processed, failed int64) {
	return l.submitted.Load(), l.processed.Load(), l.failed.Load()
}

func (l *Lanes[T]) laneFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(l.laneCount))
}

func (l *Lanes[T]) run(ctx context.Context, lane chan T) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-lane:
			if !ok {
				return
			}
			err := l.processor(ctx, work)
			l.processed.Add(1)
			if err != nil {
				l.failed.Add(1)
			}
		}
	}
}
