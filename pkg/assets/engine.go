// Package assets decides which profile images need a new version and feeds
// them to the download pool.
package assets

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"followsync/internal/downloader"
	"followsync/pkg/config"
	"followsync/pkg/logger"
	"followsync/pkg/models"
	"followsync/pkg/ratelimit"
	"followsync/pkg/storage"
)

// Reporter receives per-download outcomes for display
type Reporter interface {
	AssetSaved(id models.AccountID, kind models.AssetKind, path string)
	AssetFailed(id models.AccountID, kind models.AssetKind, err error)
}

// Submitter is the part of the worker pool the engine drives
type Submitter interface {
	Start()
	Submit(task downloader.AssetTask) error
	Results() <-chan downloader.DownloadResult
	Stop()
}

// Engine schedules asset downloads when an account's canonical URL changes
type Engine struct {
	pool     Submitter
	reporter Reporter
	logger   logger.Logger

	submitted *atomic.Int64
	ok        *atomic.Int64
	failed    *atomic.Int64

	startOnce sync.Once
	drainOnce sync.Once
	done      chan struct{}
}

// NewEngine wraps an existing pool. reporter may be nil.
func NewEngine(pool Submitter, reporter Reporter, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		pool:      pool,
		reporter:  reporter,
		logger:    log.WithField("component", "assets"),
		submitted: atomic.NewInt64(0),
		ok:        atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
		done:      make(chan struct{}),
	}
}

// New builds the HTTP fetcher, versioned storage and worker pool described
// by cfg and returns an engine over them
func New(cfg config.AssetsConfig, userAgent string, reporter Reporter, log logger.Logger) (*Engine, *storage.Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	alias, err := storage.NewAlias(cfg.LatestAlias)
	if err != nil {
		return nil, nil, err
	}
	manager, err := storage.NewManager(cfg.BaseDirectory, alias)
	if err != nil {
		return nil, nil, err
	}

	fetcher := downloader.NewHTTPFetcher(cfg.DownloadTimeout, userAgent)
	pool := downloader.NewWorkerPool(cfg.ConcurrentDownloads, fetcher, manager, ratelimit.PerMinute(cfg.RequestsPerMinute), log)

	return NewEngine(pool, reporter, log), manager, nil
}

// Start launches the pool and the result reporter
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.pool.Start()
		go e.report()
	})
}

// MaybeDownload queues a download of sourceURL when newURL differs from the
// URL prior holds for kind. It returns whether a task was submitted.
func (e *Engine) MaybeDownload(id models.AccountID, kind models.AssetKind, newURL, sourceURL *string, prior *models.ProfileRecord) bool {
	if newURL == nil || *newURL == "" || sourceURL == nil || *sourceURL == "" {
		return false
	}
	if old := prior.AssetURL(kind); old != nil && *old == *newURL {
		return false
	}

	e.Start()
	task := downloader.AssetTask{
		AccountID:    id,
		Kind:         kind,
		CanonicalURL: *newURL,
		SourceURL:    *sourceURL,
	}
	if err := e.pool.Submit(task); err != nil {
		e.logger.WithError(err).WarnWithFields("Asset task rejected", map[string]interface{}{
			"account_id": id,
			"kind":       kind,
		})
		return false
	}
	e.submitted.Inc()
	return true
}

// Drain stops intake, waits for every queued download and returns the
// number that succeeded and failed
func (e *Engine) Drain() (ok, failed int) {
	e.Start()
	e.drainOnce.Do(func() {
		e.pool.Stop()
		<-e.done

		logger.LogComponentStop(e.logger, "assets", fmt.Sprintf("drained %d downloads", e.submitted.Load()))
	})
	return int(e.ok.Load()), int(e.failed.Load())
}

func (e *Engine) report() {
	defer close(e.done)

	for result := range e.pool.Results() {
		task := result.Task
		logger.LogAssetDownload(e.logger, task.AccountID, string(task.Kind), result.Path, result.Error)

		if result.Success {
			e.ok.Inc()
			if e.reporter != nil {
				e.reporter.AssetSaved(task.AccountID, task.Kind, result.Path)
			}
			continue
		}

		e.failed.Inc()
		if e.reporter != nil {
			e.reporter.AssetFailed(task.AccountID, task.Kind, result.Error)
		}
	}
}
