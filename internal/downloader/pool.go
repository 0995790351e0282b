package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"followsync/pkg/canonical"
	"followsync/pkg/logger"
	"followsync/pkg/models"
	"followsync/pkg/ratelimit"
)

// AssetTask is one image to download. Values are copied in at submit time.
type AssetTask struct {
	AccountID    models.AccountID
	Kind         models.AssetKind
	CanonicalURL string
	SourceURL    string
}

// DownloadResult represents the result of a download task
type DownloadResult struct {
	Task     AssetTask
	Success  bool
	Path     string
	Error    error
	Duration time.Duration
	Size     int
}

// AssetFetcher retrieves the bytes behind a URL
type AssetFetcher interface {
	DownloadAsset(ctx context.Context, url string) ([]byte, error)
}

// AssetStorage persists a downloaded version and returns its path
type AssetStorage interface {
	SaveVersion(id models.AccountID, kind models.AssetKind, filename string, r io.Reader) (string, error)
}

// WorkerPool runs a fixed number of download workers fed by an unbounded
// queue. Submit never waits on a busy worker.
type WorkerPool struct {
	numWorkers  int
	intake      chan AssetTask
	jobQueue    chan AssetTask
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	dispatched  chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     AssetFetcher
	storage     AssetStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	mu      sync.Mutex
	stopped bool
	pending int
}

// NewWorkerPool creates a new download worker pool. rateLimiter may be nil.
func NewWorkerPool(
	numWorkers int,
	fetcher AssetFetcher,
	storage AssetStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		intake:      make(chan AssetTask),
		jobQueue:    make(chan AssetTask),
		resultQueue: make(chan DownloadResult, numWorkers),
		dispatched:  make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log.WithField("component", "downloader"),
	}
}

// Start launches the dispatcher and all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	go wp.dispatch()
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes intake and blocks until every queued task has been processed.
// The results channel is closed once all results have been sent.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.intake)
	wp.mu.Unlock()

	wp.logger.Info("Stopping worker pool, draining queue")

	<-wp.dispatched
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info("Worker pool stopped")
}

// Submit queues a task. It fails only after Stop.
func (wp *WorkerPool) Submit(task AssetTask) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return fmt.Errorf("worker pool is shutting down")
	}
	wp.pending++
	wp.intake <- task

	wp.logger.DebugWithFields("Task submitted to queue", map[string]interface{}{
		"account_id": task.AccountID,
		"kind":       task.Kind,
	})
	return nil
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

// Pending returns the number of submitted tasks without a result yet
func (wp *WorkerPool) Pending() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.pending
}

// dispatch moves tasks from intake to the workers, buffering without bound
func (wp *WorkerPool) dispatch() {
	defer close(wp.dispatched)
	defer close(wp.jobQueue)

	var queue []AssetTask
	in := wp.intake
	for in != nil || len(queue) > 0 {
		var out chan AssetTask
		var next AssetTask
		if len(queue) > 0 {
			out = wp.jobQueue
			next = queue[0]
		}

		select {
		case task, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, task)
		case out <- next:
			queue[0] = AssetTask{}
			queue = queue[1:]
		}
	}
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for task := range wp.jobQueue {
		result := wp.processTask(task, id)

		wp.mu.Lock()
		wp.pending--
		wp.mu.Unlock()

		wp.resultQueue <- result
	}

	wp.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// processTask downloads one asset and stores it as a new version. A failed
// download writes nothing.
func (wp *WorkerPool) processTask(task AssetTask, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Task: task}

	fields := map[string]interface{}{
		"worker_id":  workerID,
		"account_id": task.AccountID,
		"kind":       task.Kind,
	}
	wp.logger.DebugWithFields("Worker processing task", fields)

	filename := canonical.Filename(task.CanonicalURL)
	if filename == "" {
		result.Error = fmt.Errorf("no file name in %q", task.CanonicalURL)
		result.Duration = time.Since(start)
		return result
	}

	if wp.rateLimiter != nil && !wp.rateLimiter.Allow() {
		wp.logger.DebugWithFields("Worker waiting for rate limit", fields)
		wp.rateLimiter.Wait()
	}

	data, err := wp.fetcher.DownloadAsset(wp.ctx, task.SourceURL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Size = len(data)

	path, err := wp.storage.SaveVersion(task.AccountID, task.Kind, filename, bytes.NewReader(data))
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Path = path
	result.Duration = time.Since(start)

	fields["size"] = result.Size
	fields["duration"] = result.Duration
	wp.logger.DebugWithFields("Worker completed task successfully", fields)

	return result
}
