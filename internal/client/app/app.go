// Package app is the composition root of the Memoria client. It owns the
// database handle and the background sync loop, wires every component
// together, and exposes the small surface the presentation layer calls.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/memoria-app/memoria/internal/client/cache"
	"github.com/memoria-app/memoria/internal/client/config"
	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/client/remote"
	"github.com/memoria-app/memoria/internal/client/repositories/categories"
	"github.com/memoria-app/memoria/internal/client/repositories/media"
	"github.com/memoria-app/memoria/internal/client/repositories/records"
	"github.com/memoria-app/memoria/internal/client/repositories/synclog"
	"github.com/memoria-app/memoria/internal/client/scan"
	"github.com/memoria-app/memoria/internal/client/store"
	syncpkg "github.com/memoria-app/memoria/internal/client/sync"
	"github.com/memoria-app/memoria/internal/filex"
	"github.com/memoria-app/memoria/internal/logging"
	"github.com/memoria-app/memoria/internal/timex"

	metadatarepo "github.com/memoria-app/memoria/internal/client/repositories/metadata"
)

// ContentBundle is a record assembled with everything needed to present it:
// its media assets and its category. Bundles are cached briefly so repeated
// views of the same memorial do not re-query the store.
type ContentBundle struct {
	Record   *models.MemorialRecord
	Media    []models.MediaAsset
	Category *models.Category
}

// Statistics is a point-in-time snapshot of the local dataset.
type Statistics struct {
	Records       int
	MediaAssets   int
	Categories    int
	SchemaVersion int
	LogOutcomes   map[models.Outcome]int
}

// App holds the fully wired client. Construct with New, release with Close.
type App struct {
	cfg *config.Config
	log logging.Logger

	store       *store.Store
	records     records.Repository
	media       media.Repository
	categories  categories.Repository
	synclog     synclog.Repository
	coordinator *syncpkg.Coordinator
	workflow    *scan.Workflow

	bundles *cache.Cache[ContentBundle]

	stopPeriodic context.CancelFunc
	periodicDone <-chan struct{}
}

// New opens the database (running migrations before anything else touches
// it), wires repositories, caches, the remote client, the sync coordinator
// and the scan workflow, seeds the default categories, and starts the
// periodic sync loop.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	mediaDir, err := filex.EnsureSubdDir(cfg.MediaDir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("preparing media dir: %w", err)
	}

	clock := timex.SystemClock{}
	db := st.DB()

	recordRepo := records.NewSQLiteRepository(db, clock)
	mediaRepo := media.NewSQLiteRepository(db, clock)
	categoryRepo := categories.NewSQLiteRepository(db)
	logRepo := synclog.NewSQLiteRepository(db, clock)
	metaRepo := metadatarepo.NewSQLiteRepository(db)

	if err := categoryRepo.SeedDefaults(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("seeding categories: %w", err)
	}

	rc := remote.NewHTTPClient(cfg.RemoteBaseURL, cfg.RequestTimeout)

	coordinator := syncpkg.New(rc, recordRepo, mediaRepo, categoryRepo, logRepo, metaRepo, clock, log, syncpkg.Config{
		FreshnessHorizon: cfg.FreshnessHorizon,
		DataStaleness:    cfg.DataStaleness,
		RetryAttempts:    cfg.RetryAttempts,
		RetryBase:        cfg.RetryBase,
		LogRetention:     cfg.LogRetention,
		MediaDir:         mediaDir,
	})

	validationCache := cache.New[scan.Result](cfg.ValidationCacheTTL, clock)
	bundleCache := cache.New[ContentBundle](cfg.ContentCacheTTL, clock)

	periodicCtx, stopPeriodic := context.WithCancel(context.Background())
	workflow := scan.New(periodicCtx, recordRepo, coordinator, rc, validationCache, clock, log)

	a := &App{
		cfg:          cfg,
		log:          log.With("component", "app"),
		store:        st,
		records:      recordRepo,
		media:        mediaRepo,
		categories:   categoryRepo,
		synclog:      logRepo,
		coordinator:  coordinator,
		workflow:     workflow,
		bundles:      bundleCache,
		stopPeriodic: stopPeriodic,
	}
	a.periodicDone = coordinator.StartPeriodic(periodicCtx, cfg.SyncInterval)
	return a, nil
}

// LookupByCode validates and resolves a scanned code. See scan.Workflow.
func (a *App) LookupByCode(ctx context.Context, code string) (scan.Result, error) {
	return a.workflow.LookupByCode(ctx, code)
}

// GetBundle assembles the full presentation bundle for a record, serving
// from the short-lived content cache when possible.
func (a *App) GetBundle(ctx context.Context, recordID string) (ContentBundle, error) {
	if b, ok := a.bundles.Get(recordID); ok {
		return b, nil
	}

	rec, err := a.records.GetByID(ctx, recordID)
	if err != nil {
		return ContentBundle{}, err
	}
	assets, err := a.media.ListByRecord(ctx, recordID)
	if err != nil {
		return ContentBundle{}, err
	}

	b := ContentBundle{Record: rec, Media: assets}
	cats, err := a.categories.List(ctx)
	if err != nil {
		return ContentBundle{}, err
	}
	for i := range cats {
		if cats[i].ID == rec.CategoryID {
			b.Category = &cats[i]
			break
		}
	}

	a.bundles.Put(recordID, b)
	return b, nil
}

// ForceSync runs a full reconciliation now, regardless of staleness. It
// blocks until the batch completes.
func (a *App) ForceSync(ctx context.Context) (bool, error) {
	return a.coordinator.SyncAll(ctx)
}

// SyncStatus reports sync health for the presentation layer.
func (a *App) SyncStatus(ctx context.Context) (syncpkg.Status, error) {
	return a.coordinator.Status(ctx)
}

// RecentSyncLog returns the newest audit entries, most recent first.
func (a *App) RecentSyncLog(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	return a.synclog.ListRecent(ctx, limit)
}

// GetStatistics snapshots the local dataset.
func (a *App) GetStatistics(ctx context.Context) (Statistics, error) {
	st := Statistics{}
	var err error

	if st.Records, err = a.records.Count(ctx); err != nil {
		return Statistics{}, err
	}
	if st.MediaAssets, err = a.media.Count(ctx); err != nil {
		return Statistics{}, err
	}
	if st.Categories, err = a.categories.Count(ctx); err != nil {
		return Statistics{}, err
	}
	if st.SchemaVersion, err = a.store.SchemaVersion(ctx); err != nil {
		return Statistics{}, err
	}
	if st.LogOutcomes, err = a.synclog.CountByOutcome(ctx); err != nil {
		return Statistics{}, err
	}
	return st, nil
}

// Close stops the periodic sync loop, waits for it to drain, and closes
// the database.
func (a *App) Close() error {
	a.stopPeriodic()
	select {
	case <-a.periodicDone:
	case <-time.After(5 * time.Second):
		a.log.Warn(context.Background(), "periodic sync loop did not stop in time")
	}
	return a.store.Close()
}
