// Package scanner coordinates the scan pipeline: hash the file, resolve a
// fresh cached verdict, otherwise submit to the reputation service, wait
// out the remote analysis delay, fetch the report once, and persist the
// outcome.
package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vtsentry/vtsentry/internal/credstore"
	"github.com/vtsentry/vtsentry/internal/hashing"
	"github.com/vtsentry/vtsentry/internal/storage"
	"github.com/vtsentry/vtsentry/internal/storage/models"
)

// ErrNotConfigured rejects a scan before the pipeline starts: no
// reputation-service API key has been configured.
var ErrNotConfigured = errors.New("no VirusTotal API key configured")

// ReputationClient is the protocol adapter to the remote analysis service.
// The credential is passed explicitly on each call.
type ReputationClient interface {
	Submit(ctx context.Context, filePath, apiKey string) (string, error)
	FetchReport(ctx context.Context, hash, apiKey string) (models.Verdict, error)
}

// Notifier receives one outcome notification per terminal scan path.
// Delivery is fire-and-forget.
type Notifier interface {
	Send(title, message string)
}

// CredentialGetter is the read side of the credential store capability.
type CredentialGetter interface {
	Get(ctx context.Context, key string) (string, error)
}

// Config holds the orchestrator dependencies and tuning.
type Config struct {
	Store       storage.ResultStore
	Client      ReputationClient
	Notifier    Notifier
	Credentials CredentialGetter

	// SubmitWait is the fixed delay between submission and the single
	// report fetch, allowing remote analysis to complete.
	SubmitWait time.Duration

	// CacheMaxAge is the freshness window for cached verdicts.
	CacheMaxAge time.Duration
}

// Orchestrator runs the scan pipeline. One file per invocation; concurrent
// invocations are not coordinated, both only append to history.
type Orchestrator struct {
	cfg Config
}

// NewOrchestrator initializes an Orchestrator, applying the default
// 30-second submit wait and 7-day cache window where unset.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.SubmitWait == 0 {
		cfg.SubmitWait = 30 * time.Second
	}
	if cfg.CacheMaxAge == 0 {
		cfg.CacheMaxAge = storage.DefaultFreshness
	}
	return &Orchestrator{cfg: cfg}
}

// Scan runs the pipeline for the file at path and returns the terminal
// ScanRecord. Every terminal path appends exactly one record and emits
// exactly one notification; the returned error is the pipeline cause so
// callers can branch on kind. ErrNotConfigured is the one rejection that
// records nothing.
func (o *Orchestrator) Scan(ctx context.Context, path string) (models.ScanRecord, error) {
	apiKey, err := o.cfg.Credentials.Get(ctx, credstore.KeyVirusTotalAPIKey)
	if err != nil {
		return models.ScanRecord{}, err
	}
	if apiKey == "" {
		return models.ScanRecord{}, ErrNotConfigured
	}

	fileName := filepath.Base(path)
	logger := logrus.WithField("file", fileName)

	hash, err := hashing.ComputeFileDigest(path)
	if err != nil {
		logger.WithError(err).Error("Failed to hash file")
		return o.fail(ctx, fileName, "", err)
	}
	logger = logger.WithField("hash", hash)

	cached, err := o.cfg.Store.FindFreshByHash(ctx, hash, o.cfg.CacheMaxAge)
	if err != nil {
		logger.WithError(err).Error("Cache lookup failed")
		return o.fail(ctx, fileName, hash, err)
	}
	if cached != nil {
		logger.WithField("cached_at", cached.Timestamp).Info("Cache hit; skipping submission")
		record := models.NewScanRecord(fileName, cached.Status, cached.Details, hash)
		return o.finish(ctx, record)
	}

	scanID, err := o.cfg.Client.Submit(ctx, path, apiKey)
	if err != nil {
		logger.WithError(err).Error("File submission failed")
		return o.fail(ctx, fileName, hash, err)
	}
	logger.WithField("scan_id", scanID).Info("File submitted for analysis")

	// Remote analysis is asynchronous; give it the fixed window before the
	// single report fetch. No retry loop on the other side of the wait.
	select {
	case <-ctx.Done():
		return o.fail(ctx, fileName, hash, ctx.Err())
	case <-time.After(o.cfg.SubmitWait):
	}

	verdict, err := o.cfg.Client.FetchReport(ctx, hash, apiKey)
	if err != nil {
		logger.WithError(err).Error("Report fetch failed")
		return o.fail(ctx, fileName, hash, err)
	}

	logger.WithFields(logrus.Fields{
		"positives": verdict.Positives,
		"total":     verdict.Total,
	}).Info("Report received")

	record := models.NewScanRecord(fileName, verdict.Status(), verdict.Summary(), hash)
	return o.finish(ctx, record)
}

// finish appends the terminal record and notifies. A persistence failure is
// surfaced to the caller, but the record remains valid for this session.
func (o *Orchestrator) finish(ctx context.Context, record models.ScanRecord) (models.ScanRecord, error) {
	appendErr := o.cfg.Store.Append(ctx, record)
	if appendErr != nil {
		logrus.WithError(appendErr).Error("Failed to persist scan record")
	}
	o.notify(record)
	return record, appendErr
}

// fail synthesizes the ScanFailed record for cause; the attempt is always
// recorded, even when hashing produced no digest.
func (o *Orchestrator) fail(ctx context.Context, fileName, hash string, cause error) (models.ScanRecord, error) {
	record := models.NewScanRecord(fileName, models.StatusScanFailed, cause.Error(), hash)
	if err := o.cfg.Store.Append(ctx, record); err != nil {
		logrus.WithError(err).Error("Failed to persist scan record")
	}
	o.notify(record)
	return record, cause
}

func (o *Orchestrator) notify(record models.ScanRecord) {
	var title string
	switch record.Status {
	case models.StatusThreatDetected:
		title = "Threat Detected"
	case models.StatusScanFailed:
		title = "Scan Failed"
	default:
		title = "Scan Complete"
	}
	o.cfg.Notifier.Send(title, record.FileName+": "+record.Details)
}
