package notifier

import (
    "context"
    "log"
    "sync"
    "time"

    "github.com/lacasita/reservation-service/internal/metrics"
)

// Pool runs notification side effects on a fixed set of workers with a
// bounded queue, so a burst of submissions can never spawn unbounded
// goroutines.  Each task gets its own context with a per-task timeout,
// detached from the request that triggered it; a hung transport call
// therefore never pins a request goroutine.
type Pool struct {
    tasks   chan task
    timeout time.Duration
    wg      sync.WaitGroup
    metrics *metrics.Metrics

    mu     sync.Mutex
    closed bool
}

type task struct {
    name string
    fn   func(ctx context.Context)
}

// NewPool starts `workers` goroutines draining a queue of `queueSize`
// tasks.  taskTimeout bounds each task's context.
func NewPool(workers, queueSize int, taskTimeout time.Duration, m *metrics.Metrics) *Pool {
    if workers < 1 {
        workers = 1
    }
    if queueSize < 1 {
        queueSize = 1
    }
    p := &Pool{
        tasks:   make(chan task, queueSize),
        timeout: taskTimeout,
        metrics: m,
    }
    for i := 0; i < workers; i++ {
        p.wg.Add(1)
        go p.worker()
    }
    return p
}

// Submit enqueues a task without blocking.  It returns false when the
// queue is full or the pool has been shut down; the task is then
// dropped and counted.
func (p *Pool) Submit(name string, fn func(ctx context.Context)) bool {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.closed {
        return false
    }
    select {
    case p.tasks <- task{name: name, fn: fn}:
        return true
    default:
        if p.metrics != nil {
            p.metrics.TasksDropped.Inc()
        }
        return false
    }
}

// Shutdown stops accepting tasks and waits for queued tasks to finish.
func (p *Pool) Shutdown() {
    p.mu.Lock()
    if p.closed {
        p.mu.Unlock()
        return
    }
    p.closed = true
    close(p.tasks)
    p.mu.Unlock()
    p.wg.Wait()
}

func (p *Pool) worker() {
    defer p.wg.Done()
    for t := range p.tasks {
        p.run(t)
    }
}

func (p *Pool) run(t task) {
    defer func() {
        if r := recover(); r != nil {
            log.Printf("notifier: task %q panicked: %v", t.name, r)
        }
    }()
    ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
    defer cancel()
    t.fn(ctx)
}
