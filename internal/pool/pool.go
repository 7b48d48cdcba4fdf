// Package pool provides a fixed-size worker pool draining a FIFO task queue.
//
// A pool is used two ways: long-lived, hosting one task per accepted connection
// for the life of a server, and scoped, created for one bulk fan-out and shut
// down (which waits for every task) before the caller responds.
package pool

import (
	"errors"
	"sync"

	"github.com/danmuck/netbank/internal/observability"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("pool: closed")

// Task is a deferred unit of work with no result channel.
type Task func()

// Stats is a point-in-time view of pool occupancy.
type Stats struct {
	Name      string
	Workers   int
	Queued    int
	Active    int
	Completed uint64
}

// Pool owns n worker goroutines and one FIFO queue.
type Pool struct {
	name    string
	workers int

	mu        sync.Mutex
	work      *sync.Cond // queue non-empty or stop
	drained   *sync.Cond // queue empty and nothing active
	queue     []Task
	active    int
	completed uint64
	stop      bool

	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New starts n workers immediately; n < 1 is raised to 1.
func New(n int) *Pool {
	return NewNamed("pool", n)
}

// NewNamed is New with a name used in logs and metrics.
func NewNamed(name string, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{name: name, workers: n}
	p.work = sync.NewCond(&p.mu)
	p.drained = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	log.Debug().Str("pool", name).Int("workers", n).Msg("pool started")
	return p
}

// Submit appends task to the queue and wakes one idle worker.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return nil
	}
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.work.Signal()
	return nil
}

// Shutdown blocks until the queue is empty and no task is executing, then stops
// and joins every worker. Tasks may still be submitted while Shutdown waits for the
// drain; once workers are told to stop, Submit returns ErrClosed.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		for len(p.queue) > 0 || p.active > 0 {
			p.drained.Wait()
		}
		p.stop = true
		p.mu.Unlock()
		p.work.Broadcast()
		p.wg.Wait()
		log.Debug().Str("pool", p.name).Uint64("completed", p.Stats().Completed).Msg("pool.shutdown drained")
	})
}

// Stats reports current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:      p.name,
		Workers:   p.workers,
		Queued:    len(p.queue),
		Active:    p.active,
		Completed: p.completed,
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.stop && len(p.queue) == 0 {
			p.work.Wait()
		}
		if p.stop && len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.active++
		p.mu.Unlock()

		p.run(id, task)

		p.mu.Lock()
		p.active--
		p.completed++
		idle := p.active == 0 && len(p.queue) == 0
		p.mu.Unlock()
		if idle {
			p.drained.Broadcast()
		}
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("pool", p.name).Int("worker", id).Interface("panic", r).Msg("pool task panicked")
		}
	}()
	task()
	observability.RecordPoolTask(p.name)
}

// RunAll runs tasks on a scoped pool of n workers and returns once every task finished.
func RunAll(name string, n int, tasks []Task) error {
	p := NewNamed(name, n)
	var err error
	for _, task := range tasks {
		if err = p.Submit(task); err != nil {
			break
		}
	}
	p.Shutdown()
	return err
}
