// Package sync reconciles the local store with the remote source of truth.
// The coordinator decides when reconciliation is warranted, runs one batch
// at a time with bounded retries on transient errors, and records every
// outcome in the append-only sync log. It lives off the critical path: scan
// lookups trigger it but never wait for it.
package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/client/remote"
	"github.com/memoria-app/memoria/internal/client/repositories/categories"
	"github.com/memoria-app/memoria/internal/client/repositories/media"
	"github.com/memoria-app/memoria/internal/client/repositories/metadata"
	"github.com/memoria-app/memoria/internal/client/repositories/records"
	"github.com/memoria-app/memoria/internal/client/repositories/synclog"
	"github.com/memoria-app/memoria/internal/common"
	"github.com/memoria-app/memoria/internal/logging"
	"github.com/memoria-app/memoria/internal/timex"
)

const (
	keyLastAttempt = "last_sync_attempt:"
	keyLastSuccess = "last_sync_success:"
)

// Config carries the staleness thresholds and retry policy. The source
// mixed several horizons across call sites without a documented policy, so
// they are configuration here, not contract.
type Config struct {
	// FreshnessHorizon is how old the last sync attempt may be before a
	// new one is warranted.
	FreshnessHorizon time.Duration

	// DataStaleness bounds the age of local rows themselves, independent
	// of attempt recency.
	DataStaleness time.Duration

	// RetryAttempts and RetryBase shape the exponential backoff applied to
	// transient remote errors. Permanent errors are never retried.
	RetryAttempts uint64
	RetryBase     time.Duration

	// LogRetention is how long audit entries are kept before pruning.
	LogRetention time.Duration

	// MediaDir is where fetched media payloads are materialized.
	MediaDir string
}

// DefaultConfig returns the thresholds used when the config file leaves
// them unset.
func DefaultConfig() Config {
	return Config{
		FreshnessHorizon: 6 * time.Hour,
		DataStaleness:    24 * time.Hour,
		RetryAttempts:    3,
		RetryBase:        500 * time.Millisecond,
		LogRetention:     7 * 24 * time.Hour,
		MediaDir:         "media",
	}
}

// BatchResult summarizes one reconciliation batch.
type BatchResult struct {
	Kind           models.Kind
	Total          int
	Synced         int
	Failed         int
	Skipped        int
	SkippedOffline bool
	Err            string
}

// Status is the sync health snapshot exposed to the presentation layer.
type Status struct {
	Total      int
	Synced     int
	Pending    int
	Failed     int
	LastSyncAt *time.Time
}

// Coordinator runs reconciliation batches. Construct exactly one per
// process with New; it is safe for concurrent use.
type Coordinator struct {
	remote     remote.Client
	records    records.Repository
	media      media.Repository
	categories categories.Repository
	synclog    synclog.Repository
	meta       metadata.Repository
	clock      timex.Clock
	log        logging.Logger
	cfg        Config

	group   singleflight.Group
	running atomic.Bool
}

func New(
	rc remote.Client,
	recordRepo records.Repository,
	mediaRepo media.Repository,
	categoryRepo categories.Repository,
	logRepo synclog.Repository,
	metaRepo metadata.Repository,
	clock timex.Clock,
	log logging.Logger,
	cfg Config,
) *Coordinator {
	return &Coordinator{
		remote:     rc,
		records:    recordRepo,
		media:      mediaRepo,
		categories: categoryRepo,
		synclog:    logRepo,
		meta:       metaRepo,
		clock:      clock,
		log:        log.With("component", "sync"),
		cfg:        cfg,
	}
}

// NeedsSync reports whether a reconciliation batch for kind is warranted:
// when no batch ever succeeded, when the last attempt is older than the
// freshness horizon, or when a sample of the local rows is older than the
// data-staleness threshold regardless of attempt recency.
func (c *Coordinator) NeedsSync(ctx context.Context, kind models.Kind) (bool, error) {
	success, err := c.readMark(ctx, keyLastSuccess, kind)
	if err != nil {
		return false, err
	}
	if success == nil {
		return true, nil
	}

	attempt, err := c.readMark(ctx, keyLastAttempt, kind)
	if err != nil {
		return false, err
	}
	now := c.clock.Now()
	if attempt == nil || now.Sub(*attempt) > c.cfg.FreshnessHorizon {
		return true, nil
	}

	if kind == models.KindRecord {
		oldest, err := c.records.OldestUpdatedAt(ctx)
		if err != nil {
			return false, err
		}
		if oldest != nil && now.Sub(*oldest) > c.cfg.DataStaleness {
			return true, nil
		}
	}
	return false, nil
}

// Sync runs one reconciliation batch for kind, blocking until it finishes.
// Concurrent callers for the same kind share a single batch. Everything
// short of a store failure is captured in the result and the sync log; the
// store stays usable with whatever it already has.
func (c *Coordinator) Sync(ctx context.Context, kind models.Kind) (BatchResult, error) {
	v, err, _ := c.group.Do(string(kind), func() (any, error) {
		c.running.Store(true)
		defer c.running.Store(false)
		return c.runBatch(ctx, kind)
	})
	if err != nil {
		return BatchResult{Kind: kind}, err
	}
	return v.(BatchResult), nil
}

// SyncAll reconciles every kind in dependency order. It reports true when
// no batch recorded a failure. This is the blocking variant behind
// cold-start reconciliation and user-triggered force sync.
func (c *Coordinator) SyncAll(ctx context.Context) (bool, error) {
	ok := true
	for _, kind := range []models.Kind{models.KindRecord, models.KindMedia} {
		res, err := c.Sync(ctx, kind)
		if err != nil {
			return false, err
		}
		if res.Failed > 0 || res.Err != "" || res.SkippedOffline {
			ok = false
		}
	}
	return ok, nil
}

// Trigger fires a background batch for kind unless one is already in
// flight, in which case the call is ignored rather than queued. The caller
// never waits on the result; ctx should be the process lifetime context,
// not a request context.
func (c *Coordinator) Trigger(ctx context.Context, kind models.Kind) bool {
	if c.running.Load() {
		return false
	}
	go func() {
		res, err := c.Sync(ctx, kind)
		if err != nil {
			c.log.Error(ctx, "background sync failed", "kind", kind, "error", err)
			return
		}
		c.log.Info(ctx, "background sync finished",
			"kind", kind, "total", res.Total, "synced", res.Synced,
			"failed", res.Failed, "skipped", res.Skipped, "offline", res.SkippedOffline)
	}()
	return true
}

// Status summarizes sync health for the presentation layer. This is the
// only surface through which batch failures are visible.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	counts, err := c.records.CountBySyncStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Synced:  counts[models.SyncStatusSynced],
		Pending: counts[models.SyncStatusPending],
		Failed:  counts[models.SyncStatusFailed],
	}
	st.Total = st.Synced + st.Pending + st.Failed

	for _, kind := range []models.Kind{models.KindRecord, models.KindMedia} {
		mark, err := c.readMark(ctx, keyLastSuccess, kind)
		if err != nil {
			return Status{}, err
		}
		if mark != nil && (st.LastSyncAt == nil || mark.After(*st.LastSyncAt)) {
			st.LastSyncAt = mark
		}
	}
	return st, nil
}

func (c *Coordinator) runBatch(ctx context.Context, kind models.Kind) (BatchResult, error) {
	res := BatchResult{Kind: kind}

	if !c.remote.IsOnline(ctx) {
		// Offline is expected, not a failure: record the skip and leave
		// the attempt mark alone so the next staleness decision still
		// sees the last real attempt.
		res.SkippedOffline = true
		c.appendLog(ctx, models.OperationSyncBatch, kind, "", models.OutcomeSkipped, "offline")
		c.log.Info(ctx, "sync skipped, device offline", "kind", kind)
		return res, nil
	}

	var batchErr error
	switch kind {
	case models.KindRecord:
		batchErr = c.reconcileRecords(ctx, &res)
	case models.KindMedia:
		batchErr = c.reconcileMedia(ctx, &res)
	default:
		return res, fmt.Errorf("unknown sync kind %q", kind)
	}

	// The attempt mark moves unconditionally so the next staleness
	// decision is accurate even after a failed batch.
	now := c.clock.Now()
	if err := c.setMark(ctx, keyLastAttempt, kind, now); err != nil {
		return res, err
	}

	if batchErr != nil {
		res.Err = batchErr.Error()
		c.appendLog(ctx, models.OperationSyncBatch, kind, "", models.OutcomeFailed, res.Err)
		c.log.Warn(ctx, "sync batch failed", "kind", kind, "error", batchErr)
		return res, nil
	}

	summary := fmt.Sprintf("total=%d synced=%d failed=%d skipped=%d",
		res.Total, res.Synced, res.Failed, res.Skipped)
	outcome := models.OutcomeOK
	if res.Failed > 0 {
		outcome = models.OutcomeFailed
	}
	c.appendLog(ctx, models.OperationSyncBatch, kind, "", outcome, summary)

	if res.Failed == 0 {
		if err := c.setMark(ctx, keyLastSuccess, kind, now); err != nil {
			return res, err
		}
	}

	if pruned, err := c.synclog.PruneOlderThan(ctx, now.Add(-c.cfg.LogRetention)); err != nil {
		c.log.Warn(ctx, "failed to prune sync log", "error", err)
	} else if pruned > 0 {
		c.log.Debug(ctx, "pruned sync log", "entries", pruned)
	}

	c.log.Info(ctx, "sync batch finished", "kind", kind, "summary", summary)
	return res, nil
}

// reconcileRecords brings local records in line with the authoritative
// listing. One record's failure never aborts the batch.
func (c *Coordinator) reconcileRecords(ctx context.Context, res *BatchResult) error {
	var listing []models.RemoteRecord
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		listing, err = c.remote.ListRecords(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list remote records: %w", err)
	}

	res.Total = len(listing)
	seen := make(map[string]bool, len(listing))

	for _, rr := range listing {
		seen[rr.ID] = true
		switch outcome, detail := c.syncOneRecord(ctx, rr); outcome {
		case models.OutcomeOK:
			res.Synced++
			c.appendLog(ctx, models.OperationSyncEntity, models.KindRecord, rr.ID, models.OutcomeOK, "")
		case models.OutcomeSkipped:
			res.Skipped++
			c.appendLog(ctx, models.OperationSyncEntity, models.KindRecord, rr.ID, models.OutcomeSkipped, detail)
		case models.OutcomeFailed:
			res.Failed++
			c.appendLog(ctx, models.OperationSyncEntity, models.KindRecord, rr.ID, models.OutcomeFailed, detail)
			if markErr := c.records.MarkSyncStatus(ctx, rr.ID, models.SyncStatusFailed); markErr != nil {
				c.log.Warn(ctx, "failed to mark record failed", "id", rr.ID, "error", markErr)
			}
		}
	}

	// The remote listing is authoritative: local rows it no longer knows
	// at all are hard-deleted together with their media.
	local, err := c.records.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local records: %w", err)
	}
	for _, rec := range local {
		if seen[rec.ID] {
			continue
		}
		if err := c.media.DeleteByRecord(ctx, rec.ID); err != nil {
			c.log.Warn(ctx, "failed to cascade delete media", "record", rec.ID, "error", err)
			continue
		}
		if err := c.records.HardDelete(ctx, rec.ID); err != nil {
			c.log.Warn(ctx, "failed to delete record", "record", rec.ID, "error", err)
			continue
		}
		c.appendLog(ctx, models.OperationSyncEntity, models.KindRecord, rec.ID, models.OutcomeOK, "removed")
	}

	if err := c.refreshCategoryCounts(ctx); err != nil {
		c.log.Warn(ctx, "failed to refresh category counts", "error", err)
	}
	return nil
}

func (c *Coordinator) syncOneRecord(ctx context.Context, rr models.RemoteRecord) (models.Outcome, string) {
	if rr.Deleted {
		if err := c.media.DeleteByRecord(ctx, rr.ID); err != nil {
			return models.OutcomeFailed, err.Error()
		}
		if err := c.records.SoftDelete(ctx, rr.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return models.OutcomeFailed, err.Error()
		}
		return models.OutcomeOK, ""
	}

	local, err := c.records.GetByID(ctx, rr.ID)
	if err == nil && local.SyncStatus == models.SyncStatusSynced && local.Version == rr.Version {
		return models.OutcomeSkipped, "unchanged"
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return models.OutcomeFailed, err.Error()
	}

	rec := recordFromRemote(rr)
	rec.SyncStatus = models.SyncStatusSynced
	if err := c.records.Upsert(ctx, rec); err != nil {
		return models.OutcomeFailed, err.Error()
	}
	return models.OutcomeOK, ""
}

// reconcileMedia materializes remote media payloads into the media
// directory, one asset at a time.
func (c *Coordinator) reconcileMedia(ctx context.Context, res *BatchResult) error {
	var listing []models.RemoteMedia
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		listing, err = c.remote.ListMedia(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list remote media: %w", err)
	}

	res.Total = len(listing)
	for _, rm := range listing {
		switch outcome, detail := c.syncOneMedia(ctx, rm); outcome {
		case models.OutcomeOK:
			res.Synced++
			c.appendLog(ctx, models.OperationSyncEntity, models.KindMedia, rm.ID, models.OutcomeOK, "")
		case models.OutcomeSkipped:
			res.Skipped++
			c.appendLog(ctx, models.OperationSyncEntity, models.KindMedia, rm.ID, models.OutcomeSkipped, detail)
		case models.OutcomeFailed:
			res.Failed++
			c.appendLog(ctx, models.OperationSyncEntity, models.KindMedia, rm.ID, models.OutcomeFailed, detail)
			if markErr := c.media.MarkSyncStatus(ctx, rm.ID, models.SyncStatusFailed); markErr != nil {
				c.log.Warn(ctx, "failed to mark media failed", "id", rm.ID, "error", markErr)
			}
		}
	}
	return nil
}

func (c *Coordinator) syncOneMedia(ctx context.Context, rm models.RemoteMedia) (models.Outcome, string) {
	if rm.Deleted {
		if err := c.media.Delete(ctx, rm.ID); err != nil {
			return models.OutcomeFailed, err.Error()
		}
		return models.OutcomeOK, ""
	}

	local, err := c.media.GetByID(ctx, rm.ID)
	if err == nil && local.SyncStatus == models.SyncStatusSynced && local.LocalPath != "" {
		return models.OutcomeSkipped, "unchanged"
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return models.OutcomeFailed, err.Error()
	}

	asset := &models.MediaAsset{
		ID:          rm.ID,
		RecordID:    rm.RecordID,
		Kind:        models.MediaKind(rm.Kind),
		RemoteURL:   rm.URL,
		SizeBytes:   rm.SizeBytes,
		ContentType: rm.ContentType,
		Status:      models.RecordStatusActive,
		SyncStatus:  models.SyncStatusPending,
	}
	if err := c.media.Upsert(ctx, asset); err != nil {
		return models.OutcomeFailed, err.Error()
	}

	var payload []byte
	err = c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		payload, err = c.remote.FetchPayload(ctx, rm.URL)
		return err
	})
	if err != nil {
		return models.OutcomeFailed, err.Error()
	}

	path := filepath.Join(c.cfg.MediaDir, rm.ID)
	if err := os.MkdirAll(c.cfg.MediaDir, 0o755); err != nil {
		return models.OutcomeFailed, err.Error()
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return models.OutcomeFailed, err.Error()
	}

	if err := c.media.SetLocalPath(ctx, rm.ID, path, int64(len(payload))); err != nil {
		return models.OutcomeFailed, err.Error()
	}
	if err := c.media.MarkSyncStatus(ctx, rm.ID, models.SyncStatusSynced); err != nil {
		return models.OutcomeFailed, err.Error()
	}
	return models.OutcomeOK, ""
}

func (c *Coordinator) refreshCategoryCounts(ctx context.Context) error {
	counts, err := c.records.CountByCategory(ctx)
	if err != nil {
		return err
	}
	cats, err := c.categories.List(ctx)
	if err != nil {
		return err
	}
	for _, cat := range cats {
		if err := c.categories.SetRecordCount(ctx, cat.ID, counts[cat.ID]); err != nil {
			return err
		}
	}
	return nil
}

// withRetry retries fn with exponential backoff, but only for transient
// errors; permanent ones surface immediately.
func (c *Coordinator) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.cfg.RetryAttempts, retry.NewExponential(c.cfg.RetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if common.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Coordinator) appendLog(ctx context.Context, op models.Operation, kind models.Kind, target string, outcome models.Outcome, detail string) {
	err := c.synclog.Append(ctx, &models.SyncLogEntry{
		Operation: op,
		Kind:      kind,
		TargetID:  target,
		Outcome:   outcome,
		Error:     detail,
	})
	if err != nil {
		c.log.Warn(ctx, "failed to append sync log entry", "error", err)
	}
}

func (c *Coordinator) setMark(ctx context.Context, prefix string, kind models.Kind, t time.Time) error {
	return c.meta.Set(ctx, prefix+string(kind), []byte(t.UTC().Format(time.RFC3339)))
}

func (c *Coordinator) readMark(ctx context.Context, prefix string, kind models.Kind) (*time.Time, error) {
	raw, err := c.meta.Get(ctx, prefix+string(kind))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return nil, fmt.Errorf("corrupt sync mark %s%s: %w", prefix, kind, err)
	}
	return &t, nil
}

func recordFromRemote(rr models.RemoteRecord) *models.MemorialRecord {
	status := models.RecordStatus(rr.Status)
	if status == "" {
		status = models.RecordStatusActive
	}
	return &models.MemorialRecord{
		ID:           rr.ID,
		Name:         rr.Name,
		Description:  rr.Description,
		CategoryID:   rr.CategoryID,
		Version:      rr.Version,
		ImagePath:    rr.ImageURL,
		VideoPath:    rr.VideoURL,
		HologramPath: rr.HologramURL,
		AudioPaths:   rr.AudioURLs,
		Stories:      rr.Stories,
		ScanCode:     rr.ScanCode,
		Status:       status,
	}
}
