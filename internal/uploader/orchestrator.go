// Package uploader drives the scan, upload, and combined pipelines over the
// catalog and the remote client.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"medialift/internal/catalog"
	"medialift/internal/logging"
	"medialift/internal/media"
	"medialift/internal/metrics"
	"medialift/internal/models"
	"medialift/internal/remote"
	"medialift/internal/scanner"
)

// ErrTooManyFailures reports that the consecutive-error circuit breaker
// reached its threshold and the run stopped early
var ErrTooManyFailures = errors.New("too many consecutive upload failures")

// AssetSender is the remote surface the orchestrator drives
type AssetSender interface {
	Upload(ctx context.Context, path string) remote.Result
}

// ClientFactory builds one sender per worker so connections are never
// shared across goroutines
type ClientFactory func() AssetSender

// Options tunes a run
type Options struct {
	SourceDir            string
	FolderFilter         string
	MaxConsecutiveErrors int
	Delay                time.Duration
	Workers              int
	DryRun               bool
}

// Dependencies collects the collaborators an orchestrator drives. Metrics
// and Sink may be nil.
type Dependencies struct {
	Store     *catalog.Store
	Scanner   *scanner.Scanner
	Hasher    *media.Hasher
	Extractor *media.Extractor
	Factory   ClientFactory
	Sink      EventSink
	Metrics   *metrics.Metrics
	Logger    *logging.Logger
}

// Summary is the authoritative result of one run
type Summary struct {
	Total            int
	Cataloged        int
	Successful       int
	Duplicates       int
	Skipped          int
	Errors           int
	BytesTransferred int64
	Elapsed          time.Duration
}

// Orchestrator walks files through the catalog state machine. A single
// mutex guards the consecutive-error counter, the summary counters, and
// outcome writes to the catalog; it is never held across an upload.
//
// The pending claim is process-local: run one uploader per catalog at a
// time. Concurrent processes may double-send a file; the remote answers
// duplicate for the loser and the catalog converges.
type Orchestrator struct {
	store     *catalog.Store
	scanner   *scanner.Scanner
	hasher    *media.Hasher
	extractor *media.Extractor
	factory   ClientFactory
	sink      EventSink
	metrics   *metrics.Metrics
	logger    *logging.Logger
	opts      Options

	mu          sync.Mutex
	consecutive int
	summary     Summary
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	if opts.MaxConsecutiveErrors <= 0 {
		opts.MaxConsecutiveErrors = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	return &Orchestrator{
		store:     deps.Store,
		scanner:   deps.Scanner,
		hasher:    deps.Hasher,
		extractor: deps.Extractor,
		factory:   deps.Factory,
		sink:      deps.Sink,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		opts:      opts,
	}
}

// ScanRun walks the source tree and ensures every media file is cataloged.
// Existing records keep their history; files that cannot be cataloged count
// against the circuit breaker.
func (o *Orchestrator) ScanRun(ctx context.Context) (*Summary, error) {
	start := time.Now()
	o.reset()

	candidates, err := o.scanner.Scan(ctx, o.opts.SourceDir, o.opts.FolderFilter)
	if err != nil {
		return nil, err
	}
	total := len(candidates)
	o.setTotal(total)

	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return o.finish(start), ctx.Err()
		}
		if o.ingest(ctx, candidate, i+1, total) {
			o.reportTrip()
			return o.finish(start), ErrTooManyFailures
		}
	}

	return o.finish(start), nil
}

// UploadRun sends every pending or previously errored record, sequentially
// or with a worker pool
func (o *Orchestrator) UploadRun(ctx context.Context) (*Summary, error) {
	start := time.Now()
	o.reset()

	pending, err := o.store.GetPending(ctx)
	if err != nil {
		return nil, err
	}
	o.setTotal(len(pending))
	if o.metrics != nil {
		o.metrics.PendingFiles.Set(float64(len(pending)))
	}

	if len(pending) == 0 {
		o.logger.Info().Msg("Nothing to upload")
		return o.finish(start), nil
	}

	if o.opts.Workers > 1 {
		err = o.uploadParallel(ctx, pending)
	} else {
		err = o.uploadSequential(ctx, pending)
	}
	return o.finish(start), err
}

// SyncRun fuses scanning and uploading into one pass over the tree:
// classify, fingerprint, extract, catalog, then upload anything not already
// in a terminal state. Behaviorally equivalent to ScanRun followed by
// UploadRun over the same files.
func (o *Orchestrator) SyncRun(ctx context.Context) (*Summary, error) {
	start := time.Now()
	o.reset()

	candidates, err := o.scanner.Scan(ctx, o.opts.SourceDir, o.opts.FolderFilter)
	if err != nil {
		return nil, err
	}
	total := len(candidates)
	o.setTotal(total)

	client := o.factory()
	defer closeSender(client)

	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return o.finish(start), ctx.Err()
		}
		if o.syncOne(ctx, client, candidate, i+1, total) {
			o.reportTrip()
			return o.finish(start), ErrTooManyFailures
		}
		o.pause(ctx)
	}

	return o.finish(start), nil
}

func (o *Orchestrator) uploadSequential(ctx context.Context, pending []models.MediaFile) error {
	client := o.factory()
	defer closeSender(client)

	total := len(pending)
	for i, record := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if o.uploadOne(ctx, client, record, i+1, total, 0) {
			o.reportTrip()
			return ErrTooManyFailures
		}
		o.pause(ctx)
	}
	return nil
}

func (o *Orchestrator) uploadParallel(ctx context.Context, pending []models.MediaFile) error {
	total := len(pending)
	jobs := make(chan indexedRecord)
	var wg sync.WaitGroup

	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := o.factory()
			defer closeSender(client)
			for job := range jobs {
				o.uploadOne(ctx, client, job.record, job.index, total, workerID)
			}
		}(w + 1)
	}

	var dispatchErr error
dispatch:
	for i, record := range pending {
		if o.tripped() {
			dispatchErr = ErrTooManyFailures
			break
		}
		select {
		case jobs <- indexedRecord{index: i + 1, record: record}:
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	// the trip may land on the last dispatched records
	if dispatchErr == nil && o.tripped() {
		dispatchErr = ErrTooManyFailures
	}
	if errors.Is(dispatchErr, ErrTooManyFailures) {
		o.reportTrip()
	}
	return dispatchErr
}

type indexedRecord struct {
	index  int
	record models.MediaFile
}

// ingest ensures one discovered file is cataloged; reports whether the
// breaker tripped
func (o *Orchestrator) ingest(ctx context.Context, candidate scanner.Candidate, index, total int) bool {
	start := time.Now()
	filename := filepath.Base(candidate.Path)
	o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeProcessing})

	record := o.buildRecord(candidate)
	if err := o.store.InsertIfAbsent(ctx, record); err != nil {
		o.logger.Error().Str("file_path", candidate.Path).Err(err).Msg("Failed to catalog file")
		tripped := o.noteFailure()
		o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeError, Elapsed: time.Since(start)})
		return tripped
	}

	o.noteScanSuccess()
	if o.metrics != nil {
		o.metrics.FilesScanned.Inc()
	}
	o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeSuccess, Elapsed: time.Since(start)})
	return false
}

// uploadOne runs the claim-upload-record sequence for an already cataloged
// record; reports whether the breaker tripped
func (o *Orchestrator) uploadOne(ctx context.Context, client AssetSender, record models.MediaFile, index, total, workerID int) bool {
	start := time.Now()
	o.publish(Event{Index: index, Total: total, Filename: record.Filename, Status: OutcomeProcessing, Worker: workerID})

	// claim: a record that reached a terminal state needs no network call
	if record.UploadStatus.IsTerminal() {
		o.noteSkip()
		o.publish(Event{Index: index, Total: total, Filename: record.Filename, Status: OutcomeSkipped, Elapsed: time.Since(start), Worker: workerID})
		return false
	}

	if o.opts.DryRun {
		o.logger.Info().Str("file_path", record.Filepath).Msg("Dry run, upload not attempted")
		o.noteSkip()
		o.publish(Event{Index: index, Total: total, Filename: record.Filename, Status: OutcomeSkipped, Elapsed: time.Since(start), Worker: workerID})
		return false
	}

	return o.attemptUpload(ctx, client, record, index, total, workerID, start)
}

// syncOne runs the fused per-file pipeline; reports whether the breaker
// tripped
func (o *Orchestrator) syncOne(ctx context.Context, client AssetSender, candidate scanner.Candidate, index, total int) bool {
	start := time.Now()
	filename := filepath.Base(candidate.Path)
	o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeProcessing})

	record := o.buildRecord(candidate)
	status, id, err := o.store.InsertOrAdvance(ctx, record)
	if err != nil {
		o.logger.Error().Str("file_path", candidate.Path).Err(err).Msg("Failed to catalog file")
		tripped := o.noteFailure()
		o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeError, Elapsed: time.Since(start)})
		return tripped
	}
	o.noteCataloged()

	if status.IsTerminal() {
		o.logger.Debug().Str("file_path", candidate.Path).Str("status", string(status)).Msg("Already uploaded, skipping")
		o.noteSkip()
		o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeSkipped, Elapsed: time.Since(start)})
		return false
	}

	if o.opts.DryRun {
		o.logger.Info().Str("file_path", candidate.Path).Msg("Dry run, upload not attempted")
		o.noteSkip()
		o.publish(Event{Index: index, Total: total, Filename: filename, Status: OutcomeSkipped, Elapsed: time.Since(start)})
		return false
	}

	record.ID = id
	return o.attemptUpload(ctx, client, *record, index, total, 0, start)
}

// attemptUpload performs the network call and records the outcome. The
// upload and the status write run on an uncancelable context: cancellation
// takes effect at record boundaries, never by abandoning an in-flight
// transfer with its outcome unrecorded.
func (o *Orchestrator) attemptUpload(ctx context.Context, client AssetSender, record models.MediaFile, index, total, workerID int, start time.Time) bool {
	inflight := context.WithoutCancel(ctx)
	result := client.Upload(inflight, record.Filepath)
	status := interpretResult(result)

	outcome, tripped := o.applyOutcome(inflight, record, status, result)

	elapsed := time.Since(start)
	event := Event{Index: index, Total: total, Filename: record.Filename, Status: outcome, Elapsed: elapsed, Worker: workerID}
	if outcome == OutcomeSuccess {
		event.FileSize = record.FileSize
	}
	o.publish(event)
	o.observeUpload(outcome, record.FileSize, elapsed)
	return tripped
}

// buildRecord assembles a catalog record for a discovered file. Nothing
// here fails the pipeline: an unreadable file carries an empty fingerprint
// and a diagnostic inside its metadata, and is cataloged like any other.
func (o *Orchestrator) buildRecord(candidate scanner.Candidate) *models.MediaFile {
	size := candidate.Size
	if info, err := os.Stat(candidate.Path); err == nil {
		size = info.Size()
	}

	hash, err := o.hasher.HashFile(candidate.Path)
	if err != nil {
		o.logger.Warn().Str("file_path", candidate.Path).Err(err).Msg("Fingerprint unavailable")
		hash = ""
	}

	record := &models.MediaFile{
		Filepath:     candidate.Path,
		Filename:     filepath.Base(candidate.Path),
		Directory:    filepath.Dir(candidate.Path),
		FileSize:     size,
		Hash:         hash,
		Extension:    media.NormalizedExtension(candidate.Path),
		UploadStatus: models.StatusPending,
	}
	if err := record.SetMetadata(o.extractor.Extract(candidate.Path)); err != nil {
		o.logger.Debug().Str("file_path", candidate.Path).Err(err).Msg("Metadata not serialized")
	}
	return record
}

// interpretResult maps a remote result onto a catalog status: 200/201 with
// an explicit duplicate marker in the body or a 409 mean duplicate, any
// other 200/201 body (parseable or not) means success, everything else
// including transport failures means error.
func interpretResult(result remote.Result) models.UploadStatus {
	switch result.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if result.Body != nil {
			var payload struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal([]byte(*result.Body), &payload); err == nil && payload.Status == "duplicate" {
				return models.StatusDuplicate
			}
		}
		return models.StatusSuccess
	case http.StatusConflict:
		return models.StatusDuplicate
	default:
		return models.StatusError
	}
}

// applyOutcome persists the outcome and updates the shared counters under
// one lock, so parallel workers cannot interleave between a peer's status
// write and its breaker bookkeeping
func (o *Orchestrator) applyOutcome(ctx context.Context, record models.MediaFile, status models.UploadStatus, result remote.Result) (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.UpdateStatus(ctx, record.ID, status, result.JSON()); err != nil {
		o.logger.Error().Uint("id", record.ID).Err(err).Msg("Failed to record upload outcome")
		status = models.StatusError
	}

	switch status {
	case models.StatusSuccess:
		o.summary.Successful++
		o.summary.BytesTransferred += record.FileSize
		o.consecutive = 0
		return OutcomeSuccess, false
	case models.StatusDuplicate:
		o.summary.Duplicates++
		o.consecutive = 0
		return OutcomeDuplicate, false
	default:
		o.summary.Errors++
		o.consecutive++
		return OutcomeError, o.consecutive >= o.opts.MaxConsecutiveErrors
	}
}

func (o *Orchestrator) noteScanSuccess() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Cataloged++
	o.consecutive = 0
}

// noteCataloged counts an ensured record without touching the breaker; in
// the fused pipeline only upload outcomes and skips reset it
func (o *Orchestrator) noteCataloged() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Cataloged++
}

func (o *Orchestrator) noteSkip() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Skipped++
	o.consecutive = 0
}

func (o *Orchestrator) noteFailure() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Errors++
	o.consecutive++
	return o.consecutive >= o.opts.MaxConsecutiveErrors
}

func (o *Orchestrator) tripped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.consecutive >= o.opts.MaxConsecutiveErrors
}

func (o *Orchestrator) reportTrip() {
	o.logger.Error().Int("threshold", o.opts.MaxConsecutiveErrors).
		Msg("Stopping after too many consecutive failures")
	if o.metrics != nil {
		o.metrics.BreakerTripsTotal.Inc()
	}
}

func (o *Orchestrator) observeUpload(outcome Outcome, size int64, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.UploadsTotal.WithLabelValues(string(outcome)).Inc()
	o.metrics.UploadDurationSeconds.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		o.metrics.UploadBytesTotal.Add(float64(size))
	}
}

func (o *Orchestrator) publish(event Event) {
	if o.sink == nil {
		return
	}
	o.sink.Publish(event)
}

// pause spaces out requests between records; cancellation cuts it short
func (o *Orchestrator) pause(ctx context.Context) {
	if o.opts.Delay <= 0 {
		return
	}
	timer := time.NewTimer(o.opts.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary = Summary{}
	o.consecutive = 0
}

func (o *Orchestrator) setTotal(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Total = n
}

func (o *Orchestrator) finish(start time.Time) *Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.summary
	s.Elapsed = time.Since(start)
	return &s
}

func closeSender(client AssetSender) {
	if closer, ok := client.(interface{ Close() }); ok {
		closer.Close()
	}
}
