package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job is a named fire-and-forget unit of work with its arguments.
type Job struct {
	ID   string
	Name string
	Args map[string]any
}

// HandlerFunc executes one job.
type HandlerFunc func(ctx context.Context, job Job) error

// Dispatcher runs named jobs on a bounded worker pool. Producers
// enqueue by name and argument list and never wait for completion.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	queue    chan Job
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func NewDispatcher(workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queue:    make(chan Job, queueSize),
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	return d
}

// Register binds a job name to its handler. Names are bound once at
// startup, before any Enqueue.
func (d *Dispatcher) Register(name string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = handler
}

// Enqueue submits a job and returns its id. A full queue is an error
// rather than a block: producers are conversation turns and must not
// stall on background work.
func (d *Dispatcher) Enqueue(name string, args map[string]any) (string, error) {
	d.mu.RLock()
	_, known := d.handlers[name]
	d.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("no handler registered for job %q", name)
	}
	job := Job{ID: uuid.NewString(), Name: name, Args: args}
	select {
	case d.queue <- job:
		return job.ID, nil
	default:
		return "", fmt.Errorf("job queue full, dropping %q", name)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.mu.RLock()
			handler := d.handlers[job.Name]
			d.mu.RUnlock()
			if handler == nil {
				continue
			}
			if err := handler(ctx, job); err != nil {
				logrus.Errorf("job %s (%s) failed: %v", job.Name, job.ID, err)
			}
		}
	}
}

// Stop halts the workers. Queued jobs not yet picked up are dropped.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}
