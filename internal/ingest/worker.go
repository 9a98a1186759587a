package ingest

import (
	"context"

	log "github.com/sirupsen/logrus"

	"facility-usage-backend/internal/utilization"
)

// Writer persists samples.
type Writer interface {
	InsertUtilizations(ctx context.Context, samples []utilization.Sample) error
}

// job is one page of samples; done receives the outcome of the write.
type job struct {
	page    int
	samples []utilization.Sample
	done    func(error)
}

// WorkerPool writes fetched pages concurrently while later pages are fetched.
type WorkerPool struct {
	size   int
	jobs   chan job
	writer Writer
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, writer Writer) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan job, size), // Buffered channel
		writer: writer,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debugf("Ingest worker %d started", id)
	for {
		select {
		case j := <-wp.jobs:
			log.Debugf("Worker %d writing page %d (%d samples)", id, j.page, len(j.samples))
			j.done(wp.writer.InsertUtilizations(ctx, j.samples))
		case <-ctx.Done():
			log.Debugf("Ingest worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job, blocking while every worker is busy and the buffer is full.
func (wp *WorkerPool) Dispatch(ctx context.Context, j job) error {
	select {
	case wp.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
