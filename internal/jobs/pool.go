package jobs

import (
	"context"
	"sync"
)

// Task is one unit of background work for a single job.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of workers. Submission never
// blocks job creation; Stop waits for in-flight tasks so shutdown does not
// abandon work silently.
type Pool struct {
	tasks    chan Task
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	p := &Pool{
		tasks:  make(chan Task, 1024),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit hands a task to the pool. If the buffer is full the handoff is
// retried from a goroutine so the caller returns immediately.
func (p *Pool) Submit(task Task) {
	if task == nil {
		return
	}
	select {
	case p.tasks <- task:
	default:
		go func() {
			select {
			case p.tasks <- task:
			case <-p.stopCh:
			}
		}()
	}
}

// Stop signals the workers and waits for in-flight tasks to finish. Tasks
// still buffered are left for the next start; their records remain queued.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case task := <-p.tasks:
			task(context.Background())
		}
	}
}
