package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a pool of goroutines for data-parallel loops over index ranges.
//
// Each worker owns a queue and steals from the other queues when its own runs
// dry, which balances ranges whose cost per element varies (clipped vs
// untouched cells).
//
// Pool is safe for concurrent use but Range must not be called from inside a
// task running on the same pool.
type Pool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewPool starts a pool with the given number of workers.
// If workers is 0 or negative GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}
	p := &Pool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	own := p.workQueues[id]
	for {
		var work func()
		select {
		case <-p.done:
			for {
				select {
				case work = <-own:
					work()
				default:
					return
				}
			}
		case work = <-own:
		default:
			if work = p.steal(id); work == nil {
				select {
				case <-p.done:
					continue
				case work = <-own:
				}
			}
		}
		work()
	}
}

// steal takes one task from the queues of the other workers, starting with
// the next one, or returns nil if they are all empty.
func (p *Pool) steal(id int) func() {
	for i := 1; i < p.workers; i++ {
		select {
		case work := <-p.workQueues[(id+i)%p.workers]:
			return work
		default:
		}
	}
	return nil
}

// executeAll distributes work across workers and waits for all of it to complete.
// If the pool is closed the work is run on the calling goroutine.
func (p *Pool) executeAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		task := func() {
			defer wg.Done()
			fn()
		}
		select {
		case p.workQueues[i%p.workers] <- task:
		case <-p.done:
			task()
		}
	}
	wg.Wait()
}

// Range splits [0,n) into chunks of at most grain elements and calls fn
// for every chunk on the pool. Cancellation is polled once per chunk: after
// ctx is done no new chunk starts, chunks already running finish. Range
// returns ctx.Err() if the context was done at any check.
func (p *Pool) Range(ctx context.Context, n, grain int, fn func(lo, hi int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	if grain <= 0 {
		grain = 1
	}
	nchunks := (n + grain - 1) / grain
	var aborted atomic.Bool
	work := make([]func(), nchunks)
	for c := range work {
		lo := c * grain
		hi := min(lo+grain, n)
		work[c] = func() {
			if aborted.Load() {
				return
			}
			if ctx.Err() != nil {
				aborted.Store(true)
				return
			}
			fn(lo, hi)
		}
	}
	p.executeAll(work)
	return ctx.Err()
}

// Close stops the workers after draining queued work. Close is idempotent.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
