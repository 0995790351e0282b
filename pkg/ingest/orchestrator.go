package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"followsync/pkg/canonical"
	"followsync/pkg/export"
	"followsync/pkg/following"
	"followsync/pkg/logger"
	"followsync/pkg/models"
	"followsync/pkg/store"
	"followsync/pkg/ui"
)

// ProfileFetcher fetches one account profile, trying mirrors as needed
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id models.AccountID) (*models.ProfileRecord, error)
}

// ResultStore is the durable record log
type ResultStore interface {
	Load() (*store.Results, error)
	Append(rec *models.ProfileRecord) error
}

// AssetScheduler queues image downloads and waits for them
type AssetScheduler interface {
	MaybeDownload(id models.AccountID, kind models.AssetKind, newURL, sourceURL *string, prior *models.ProfileRecord) bool
	Drain() (ok, failed int)
}

// Pauser sleeps between accounts
type Pauser interface {
	Pause() time.Duration
}

// Deps wires an Orchestrator. Terminal, Pacer, Stop, Out and Logger may be
// left nil.
type Deps struct {
	Fetcher    ProfileFetcher
	Store      ResultStore
	Assets     AssetScheduler
	Canon      *canonical.Canonicalizer
	ExportPath string
	Terminal   *ui.Terminal
	Pacer      Pauser
	Stop       *StopFlag
	Out        io.Writer
	Logger     logger.Logger
}

// Summary describes what a run did
type Summary struct {
	RunID           string
	Mode            Mode
	Single          bool
	Attempted       int
	Succeeded       int
	Failed          int
	PersistFailures int
	DownloadsOK     int
	DownloadsFailed int
	Exported        int
	Missing         []models.AccountID
	ImageIssues     []ImageIssue
	Interrupted     bool
}

// Orchestrator runs the sequential per-account fetch loop. It owns the
// in-memory results; only it reads or writes them.
type Orchestrator struct {
	fetcher    ProfileFetcher
	store      ResultStore
	assets     AssetScheduler
	canon      *canonical.Canonicalizer
	exportPath string
	term       *ui.Terminal
	pacer      Pauser
	stop       *StopFlag
	out        io.Writer
	logger     logger.Logger
}

type noPause struct{}

func (noPause) Pause() time.Duration { return 0 }

// New creates an Orchestrator
func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = logger.GetLogger()
	}
	if d.Terminal == nil {
		d.Terminal = ui.NewTerminal(io.Discard, true)
	}
	if d.Pacer == nil {
		d.Pacer = noPause{}
	}
	if d.Stop == nil {
		d.Stop = NewStopFlag()
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}

	return &Orchestrator{
		fetcher:    d.Fetcher,
		store:      d.Store,
		assets:     d.Assets,
		canon:      d.Canon,
		exportPath: d.ExportPath,
		term:       d.Terminal,
		pacer:      d.Pacer,
		stop:       d.Stop,
		out:        d.Out,
		logger:     d.Logger.WithField("component", "ingest"),
	}
}

// Run executes opts over the input ids. Errors returned are fatal; per
// account failures are counted in the Summary instead.
func (o *Orchestrator) Run(ctx context.Context, ids []models.AccountID, opts Options) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString(), Mode: opts.Mode, Single: opts.Single}
	log := o.logger.WithFields(map[string]interface{}{
		"run_id": sum.RunID,
		"mode":   opts.Mode.String(),
	})

	results, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	ids = following.Dedupe(ids)

	log.InfoWithFields("Run started", map[string]interface{}{
		"input":  len(ids),
		"stored": results.Len(),
		"single": opts.Single,
	})

	switch opts.Mode {
	case ModeExportOnly:
		o.term.Info("EXPORT", "Cosense output only")
		if err := o.writeExport(results, sum, log); err != nil {
			return sum, err
		}
		return sum, nil

	case ModeValidate:
		sum.Missing = Missing(ids, results)
		for _, id := range sum.Missing {
			o.term.Line(id)
		}
		o.term.Info("Missing", fmt.Sprintf("%d of %d", len(sum.Missing), len(ids)))
		return sum, nil

	case ModeValidateImages:
		sum.ImageIssues = ImageIssues(ids, results, o.canon)
		for _, issue := range sum.ImageIssues {
			o.term.Line(fmt.Sprintf("%s\t%s\t%s", issue.AccountID, issue.Field, issue.Reason))
		}
		o.term.Info("Image issues", fmt.Sprintf("%d", len(sum.ImageIssues)))
		return sum, nil
	}

	work := WorkSet(opts.Mode, ids, results, o.canon)

	if opts.Single {
		return sum, o.runSingle(ctx, ids, work, sum)
	}

	o.term.Info("Loaded", fmt.Sprintf("%d previous entries", results.Len()))
	o.term.Info("Mode", fmt.Sprintf("%s, %d to fetch", opts.Mode, len(work)))

	tracker := ui.NewStatusTracker(len(ids), len(ids)-len(work))
	o.term.Track(tracker)

	for i, id := range work {
		if o.stop.Canceled() {
			sum.Interrupted = true
			log.InfoWithFields("Stop requested", map[string]interface{}{
				"remaining": len(work) - i,
			})
			break
		}

		o.processAccount(ctx, id, results, sum, log)

		if i < len(work)-1 && !o.stop.Canceled() {
			o.pacer.Pause()
		}
	}

	sum.DownloadsOK, sum.DownloadsFailed = o.assets.Drain()
	o.term.Progress()

	exportErr := o.writeExport(results, sum, log)

	log.InfoWithFields("Run finished", map[string]interface{}{
		"attempted":        sum.Attempted,
		"succeeded":        sum.Succeeded,
		"failed":           sum.Failed,
		"persist_failures": sum.PersistFailures,
		"downloads_ok":     sum.DownloadsOK,
		"downloads_failed": sum.DownloadsFailed,
		"interrupted":      sum.Interrupted,
	})

	if sum.Interrupted {
		o.term.Interrupted()
	} else {
		o.term.Done()
	}
	return sum, exportErr
}

// processAccount fetches one account, schedules its images against the
// previous record, then stores the new record
func (o *Orchestrator) processAccount(ctx context.Context, id models.AccountID, results *store.Results, sum *Summary, log logger.Logger) {
	sum.Attempted++
	o.term.Fetching(id)

	rec, err := o.fetcher.FetchProfile(ctx, id)
	if err != nil {
		sum.Failed++
		log.WithError(err).WarnWithFields("Account fetch failed", map[string]interface{}{
			"account_id": id,
		})
		o.term.FetchFailed(id, err)
		return
	}

	prior := results.Get(id)
	for _, kind := range models.AssetKinds {
		o.assets.MaybeDownload(id, kind, rec.AssetURL(kind), rec.AssetRef(kind), prior)
	}

	results.Put(rec)
	if err := o.store.Append(rec); err != nil {
		sum.PersistFailures++
		log.WithError(err).ErrorWithFields("Failed to persist record", map[string]interface{}{
			"account_id": id,
		})
		o.term.Warn(fmt.Sprintf("[WARN] %s fetched but not saved: %v", id, err))
	}

	sum.Succeeded++
	o.term.FetchOK(id, models.Value(rec.ScreenName), rec.FetchedFrom)
}

// runSingle fetches one account and prints it without persisting anything
func (o *Orchestrator) runSingle(ctx context.Context, ids, work []models.AccountID, sum *Summary) error {
	var id models.AccountID
	switch {
	case len(work) > 0:
		id = work[0]
	case len(ids) > 0:
		id = ids[0]
	default:
		return fmt.Errorf("no accounts in input")
	}

	sum.Attempted = 1
	rec, err := o.fetcher.FetchProfile(ctx, id)
	if err != nil {
		sum.Failed = 1
		o.term.FetchFailed(id, err)
		return nil
	}
	sum.Succeeded = 1

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = o.out.Write(buf.Bytes())
	return err
}

func (o *Orchestrator) writeExport(results *store.Results, sum *Summary, log logger.Logger) error {
	n, err := export.Write(o.exportPath, results.Records(), o.canon)
	if err != nil {
		log.WithError(err).Error("Export failed")
		return err
	}
	sum.Exported = n
	log.InfoWithFields("Export written", map[string]interface{}{
		"path":  o.exportPath,
		"pages": n,
	})
	o.term.Info("Exported", fmt.Sprintf("%d pages to %s", n, o.exportPath))
	return nil
}
