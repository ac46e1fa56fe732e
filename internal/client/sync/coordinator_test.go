package sync

import (
	"context"
	"database/sql"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	_ "modernc.org/sqlite"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/client/repositories/categories"
	"github.com/memoria-app/memoria/internal/client/repositories/media"
	"github.com/memoria-app/memoria/internal/client/repositories/metadata"
	"github.com/memoria-app/memoria/internal/client/repositories/records"
	"github.com/memoria-app/memoria/internal/client/repositories/synclog"
	"github.com/memoria-app/memoria/internal/client/store"
	"github.com/memoria-app/memoria/internal/common"
	"github.com/memoria-app/memoria/internal/logging"
	"github.com/memoria-app/memoria/internal/timex"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRemote scripts the remote collaborator.
type fakeRemote struct {
	mu          gosync.Mutex
	online      bool
	records     []models.RemoteRecord
	media       []models.RemoteMedia
	listErrs    []error
	payloadErrs map[string]error
	listCalls   int
	block       chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{online: true, payloadErrs: map[string]error{}}
}

func (f *fakeRemote) IsOnline(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeRemote) ListRecords(ctx context.Context) ([]models.RemoteRecord, error) {
	f.mu.Lock()
	f.listCalls++
	var err error
	if len(f.listErrs) > 0 {
		err, f.listErrs = f.listErrs[0], f.listErrs[1:]
	}
	block := f.block
	items := append([]models.RemoteRecord(nil), f.records...)
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeRemote) ListMedia(ctx context.Context) ([]models.RemoteMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RemoteMedia(nil), f.media...), nil
}

func (f *fakeRemote) FetchPayload(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.payloadErrs[url]; err != nil {
		return nil, err
	}
	return []byte("payload:" + url), nil
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fixture struct {
	coord   *Coordinator
	remote  *fakeRemote
	clock   *timex.FakeClock
	records *records.SQLiteRepository
	media   *media.SQLiteRepository
	synclog *synclog.SQLiteRepository
	cats    *categories.SQLiteRepository
}

func setup(t *testing.T, name string) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db, logging.Nop()))

	clock := timex.NewFakeClock(time.Unix(1_700_000_000, 0))
	recordRepo := records.NewSQLiteRepository(db, clock)
	mediaRepo := media.NewSQLiteRepository(db, clock)
	categoryRepo := categories.NewSQLiteRepository(db)
	logRepo := synclog.NewSQLiteRepository(db, clock)
	metaRepo := metadata.NewSQLiteRepository(db)
	require.NoError(t, categoryRepo.SeedDefaults(context.Background()))

	rc := newFakeRemote()
	cfg := DefaultConfig()
	cfg.RetryBase = time.Millisecond
	cfg.MediaDir = t.TempDir()

	coord := New(rc, recordRepo, mediaRepo, categoryRepo, logRepo, metaRepo, clock, logging.Nop(), cfg)
	return &fixture{
		coord: coord, remote: rc, clock: clock,
		records: recordRepo, media: mediaRepo, synclog: logRepo, cats: categoryRepo,
	}
}

func remoteRecord(id, code string, version int) models.RemoteRecord {
	return models.RemoteRecord{
		ID: id, Name: "Record " + id, CategoryID: "people",
		Version: version, ScanCode: code, Status: "active",
	}
}

func (f *fixture) logEntries(t *testing.T, op models.Operation, kind models.Kind) []models.SyncLogEntry {
	t.Helper()
	all, err := f.synclog.ListRecent(context.Background(), 1000)
	require.NoError(t, err)
	var out []models.SyncLogEntry
	for _, e := range all {
		if e.Operation == op && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestNeedsSync_Signals(t *testing.T) {
	f := setup(t, "sync_needs")
	ctx := context.Background()

	// Never reconciled.
	needed, err := f.coord.NeedsSync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.True(t, needed, "needsSync is true when nothing ever succeeded")

	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 1)}
	res, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)

	needed, err = f.coord.NeedsSync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.False(t, needed, "fresh after a successful batch")

	f.clock.Advance(f.coord.cfg.FreshnessHorizon + time.Minute)
	needed, err = f.coord.NeedsSync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.True(t, needed, "stale once the horizon elapsed")
}

func TestNeedsSync_DataAgeSignal(t *testing.T) {
	f := setup(t, "sync_needs_dataage")
	ctx := context.Background()

	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 1)}
	_, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)

	// Recent attempt, but pretend the attempt marks were refreshed while
	// the rows themselves aged past the data threshold.
	f.clock.Advance(f.coord.cfg.DataStaleness + time.Hour)
	require.NoError(t, f.coord.setMark(ctx, keyLastAttempt, models.KindRecord, f.clock.Now()))
	require.NoError(t, f.coord.setMark(ctx, keyLastSuccess, models.KindRecord, f.clock.Now()))

	needed, err := f.coord.NeedsSync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.True(t, needed, "old local data forces a sync regardless of attempt recency")
}

func TestSync_Offline(t *testing.T) {
	f := setup(t, "sync_offline")
	ctx := context.Background()
	f.remote.online = false

	res, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err, "offline is expected, never an error")
	require.True(t, res.SkippedOffline)

	batches := f.logEntries(t, models.OperationSyncBatch, models.KindRecord)
	require.Len(t, batches, 1)
	require.Equal(t, models.OutcomeSkipped, batches[0].Outcome)
	require.Equal(t, "offline", batches[0].Error)

	needed, err := f.coord.NeedsSync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.True(t, needed, "a skipped batch is not an attempt")
}

func TestSync_PartialFailuresDoNotAbortBatch(t *testing.T) {
	f := setup(t, "sync_partial")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		f.remote.media = append(f.remote.media, models.RemoteMedia{
			ID: fmt.Sprintf("m%d", i), RecordID: "r1", Kind: "image",
			URL: fmt.Sprintf("https://cdn.example.com/m%d", i), ContentType: "image/jpeg",
		})
	}
	f.remote.payloadErrs["https://cdn.example.com/m2"] = fmt.Errorf("%w: 401", common.ErrPermanent)
	f.remote.payloadErrs["https://cdn.example.com/m4"] = fmt.Errorf("%w: 404", common.ErrPermanent)

	res, err := f.coord.Sync(ctx, models.KindMedia)
	require.NoError(t, err)
	require.Equal(t, 5, res.Total)
	require.Equal(t, 3, res.Synced)
	require.Equal(t, 2, res.Failed)

	entities := f.logEntries(t, models.OperationSyncEntity, models.KindMedia)
	require.Len(t, entities, 5, "one entity-level entry per remote asset")
	batches := f.logEntries(t, models.OperationSyncBatch, models.KindMedia)
	require.Len(t, batches, 1, "exactly one batch summary entry")

	for _, id := range []string{"m1", "m3", "m5"} {
		a, err := f.media.GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.SyncStatusSynced, a.SyncStatus)
		require.NotEmpty(t, a.LocalPath)
	}
	for _, id := range []string{"m2", "m4"} {
		a, err := f.media.GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.SyncStatusFailed, a.SyncStatus)
	}

	// A batch with failures moves the attempt mark but not the success mark.
	needed, err := f.coord.NeedsSync(ctx, models.KindMedia)
	require.NoError(t, err)
	require.True(t, needed)
}

func TestSync_SkipsUnchangedEntities(t *testing.T) {
	f := setup(t, "sync_skip")
	ctx := context.Background()

	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 3)}
	res, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)

	res, err = f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped, "synced and unchanged entities are skipped")
	require.Zero(t, res.Synced)

	// A version bump invalidates the skip.
	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 4)}
	res, err = f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)
}

func TestSync_RemoteDeletionsPropagate(t *testing.T) {
	f := setup(t, "sync_deletions")
	ctx := context.Background()

	f.remote.records = []models.RemoteRecord{
		remoteRecord("r1", "CODE-001", 1),
		remoteRecord("r2", "CODE-002", 1),
	}
	_, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)

	// r1 is tombstoned remotely, r2 vanishes from the listing entirely.
	deleted := remoteRecord("r1", "CODE-001", 2)
	deleted.Deleted = true
	f.remote.records = []models.RemoteRecord{deleted}

	_, err = f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)

	_, err = f.records.GetByScanCode(ctx, "CODE-001")
	require.ErrorIs(t, err, common.ErrNotFound, "tombstoned record soft-deleted")
	_, err = f.records.GetByScanCode(ctx, "CODE-002")
	require.ErrorIs(t, err, common.ErrNotFound, "vanished record hard-deleted")
}

func TestSync_RetriesTransientListErrors(t *testing.T) {
	f := setup(t, "sync_retry")
	ctx := context.Background()

	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 1)}
	f.remote.listErrs = []error{
		fmt.Errorf("%w: connection reset", common.ErrTransient),
		fmt.Errorf("%w: 503", common.ErrTransient),
	}

	res, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)
	require.Equal(t, 1, res.Synced)
	require.Equal(t, 3, f.remote.calls(), "two transient failures, then success")
}

func TestSync_PermanentErrorsNotRetried(t *testing.T) {
	f := setup(t, "sync_permanent")
	ctx := context.Background()

	f.remote.listErrs = []error{fmt.Errorf("%w: 401 unauthorized", common.ErrPermanent)}

	res, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err, "batch failure is recorded, never thrown")
	require.NotEmpty(t, res.Err)
	require.Equal(t, 1, f.remote.calls(), "permanent errors get exactly one attempt")

	batches := f.logEntries(t, models.OperationSyncBatch, models.KindRecord)
	require.Len(t, batches, 1)
	require.Equal(t, models.OutcomeFailed, batches[0].Outcome)
}

func TestSync_ConcurrentCallsCoalesce(t *testing.T) {
	f := setup(t, "sync_coalesce")
	ctx := context.Background()

	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 1)}
	release := make(chan struct{})
	f.remote.block = release

	var wg gosync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.coord.Sync(ctx, models.KindRecord)
		}()
	}

	require.Eventually(t, func() bool { return f.remote.calls() == 1 },
		time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight batch before
	// it is released.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, f.remote.calls(), "concurrent callers share one batch")
	require.Len(t, f.logEntries(t, models.OperationSyncBatch, models.KindRecord), 1)
}

func TestTrigger_IgnoredWhileBatchInFlight(t *testing.T) {
	f := setup(t, "sync_trigger")
	ctx := context.Background()

	f.remote.records = []models.RemoteRecord{remoteRecord("r1", "CODE-001", 1)}
	release := make(chan struct{})
	f.remote.block = release

	require.True(t, f.coord.Trigger(ctx, models.KindRecord))
	require.Eventually(t, func() bool { return f.remote.calls() == 1 },
		time.Second, time.Millisecond)

	require.False(t, f.coord.Trigger(ctx, models.KindRecord),
		"re-entrant trigger is ignored, not queued")

	close(release)
	require.Eventually(t, func() bool { return !f.coord.running.Load() },
		time.Second, time.Millisecond)
	require.Equal(t, 1, f.remote.calls())
}

func TestSync_RefreshesCategoryCounts(t *testing.T) {
	f := setup(t, "sync_catcounts")
	ctx := context.Background()

	a := remoteRecord("r1", "CODE-001", 1)
	b := remoteRecord("r2", "CODE-002", 1)
	b.CategoryID = "places"
	f.remote.records = []models.RemoteRecord{a, b}

	_, err := f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)

	cats, err := f.cats.List(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, c := range cats {
		counts[c.ID] = c.RecordCount
	}
	require.Equal(t, 1, counts["people"])
	require.Equal(t, 1, counts["places"])
	require.Zero(t, counts["events"])
}

func TestStatus(t *testing.T) {
	f := setup(t, "sync_status")
	ctx := context.Background()

	st, err := f.coord.Status(ctx)
	require.NoError(t, err)
	require.Zero(t, st.Total)
	require.Nil(t, st.LastSyncAt)

	f.remote.records = []models.RemoteRecord{
		remoteRecord("r1", "CODE-001", 1),
		remoteRecord("r2", "CODE-002", 1),
	}
	_, err = f.coord.Sync(ctx, models.KindRecord)
	require.NoError(t, err)

	st, err = f.coord.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, st.Total)
	require.Equal(t, 2, st.Synced)
	require.NotNil(t, st.LastSyncAt)
	require.Equal(t, f.clock.Now().Unix(), st.LastSyncAt.Unix())
}

func TestStartPeriodic_StopsOnCancel(t *testing.T) {
	f := setup(t, "sync_periodic")

	ctx, cancel := context.WithCancel(context.Background())
	done := f.coord.StartPeriodic(ctx, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic loop did not stop on cancel")
	}
}
