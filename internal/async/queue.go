package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shamsaravaiah/receiptdrop/internal/ingest"
)

// Job is the smallest useful unit of background ingestion work.
type Job struct {
	Path          string
	UserID        string
	UserDirectory string
	SubmittedAt   time.Time
	TraceID       string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// WorkerQueue is an in-process queue backed by a fixed worker pool.
type WorkerQueue struct {
	jobs   chan Job
	ing    ingest.Ingestor
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewWorkerQueue(workers, depth int, ing ingest.Ingestor, logger *slog.Logger) *WorkerQueue {
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerQueue{
		jobs:   make(chan Job, depth),
		ing:    ing,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) error {
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}

	// The mutex is held across the send so Shutdown cannot close the channel
	// between the closed check and the send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue is shut down")
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for in-flight work, bounded by ctx.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown_timeout", "error", ctx.Err())
	}
}

func (q *WorkerQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		res, err := q.ing.IngestPath(context.Background(), job.UserID, job.UserDirectory, job.Path)
		switch {
		case err != nil:
			q.logger.Error("queue.job_failed",
				"trace_id", job.TraceID,
				"path", job.Path,
				"error", err,
			)
		case res.Skipped:
			q.logger.Info("queue.job_skipped",
				"trace_id", job.TraceID,
				"path", job.Path,
			)
		default:
			q.logger.Info("queue.job_ok",
				"trace_id", job.TraceID,
				"path", job.Path,
				"record_id", res.RecordID,
				"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
			)
		}
	}
}
