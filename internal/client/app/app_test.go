package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memoria-app/memoria/internal/client/config"
	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/client/store"
	"github.com/memoria-app/memoria/internal/logging"
)

// newRemoteStub serves a fixed record listing, an empty media listing and a
// healthy probe endpoint.
func newRemoteStub(t *testing.T, recordsJSON string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/records":
			w.Write([]byte(recordsJSON))
		case "/api/v1/media":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newApp(t *testing.T, remoteURL string) *App {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabasePath = filepath.Join(dir, "memoria.db")
	cfg.MediaDir = filepath.Join(dir, "media")
	cfg.RemoteBaseURL = remoteURL
	cfg.SyncInterval = time.Hour // keep the periodic loop quiet during tests

	a, err := New(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

func TestNew_MigratesAndSeeds(t *testing.T) {
	srv := newRemoteStub(t, `[]`)
	a := newApp(t, srv.URL)

	st, err := a.GetStatistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, store.CurrentSchemaVersion, st.SchemaVersion)
	require.Equal(t, 3, st.Categories, "default categories are seeded on startup")
	require.Zero(t, st.Records)
}

func TestLookupByCode_EndToEnd(t *testing.T) {
	srv := newRemoteStub(t, `[]`)
	a := newApp(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, a.records.Upsert(ctx, &models.MemorialRecord{
		ID:         "r1",
		Name:       "Naomi N.",
		CategoryID: "people",
		Version:    1,
		ScanCode:   "NAOMI-N-MEMORIAL-001",
		Status:     models.RecordStatusActive,
		SyncStatus: models.SyncStatusSynced,
	}))

	res, err := a.LookupByCode(ctx, "NAOMI-N-MEMORIAL-001")
	require.NoError(t, err)
	require.Equal(t, "r1", res.Record.ID)
	require.False(t, res.Degraded)
}

func TestGetBundle_AssemblesAndCaches(t *testing.T) {
	srv := newRemoteStub(t, `[]`)
	a := newApp(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, a.records.Upsert(ctx, &models.MemorialRecord{
		ID:         "r1",
		Name:       "Naomi N.",
		CategoryID: "people",
		Version:    1,
		ScanCode:   "CODE-001",
		Status:     models.RecordStatusActive,
		SyncStatus: models.SyncStatusSynced,
	}))
	require.NoError(t, a.media.Upsert(ctx, &models.MediaAsset{
		ID:         "m1",
		RecordID:   "r1",
		Kind:       models.MediaKindImage,
		RemoteURL:  srv.URL + "/payload/m1.jpg",
		Status:     models.RecordStatusActive,
		SyncStatus: models.SyncStatusSynced,
	}))

	b, err := a.GetBundle(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", b.Record.ID)
	require.Len(t, b.Media, 1)
	require.NotNil(t, b.Category)
	require.Equal(t, "people", b.Category.ID)

	// The bundle survives deletion of the backing rows while cached.
	require.NoError(t, a.records.HardDelete(ctx, "r1"))
	again, err := a.GetBundle(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", again.Record.ID)
}

func TestForceSync_PullsRemoteRecords(t *testing.T) {
	srv := newRemoteStub(t, `[
		{"id":"r9","name":"Ada L.","category_id":"people","scan_code":"ADA-L-MEMORIAL-009","version":1}
	]`)
	a := newApp(t, srv.URL)
	ctx := context.Background()

	ran, err := a.ForceSync(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	res, err := a.LookupByCode(ctx, "ADA-L-MEMORIAL-009")
	require.NoError(t, err)
	require.Equal(t, "r9", res.Record.ID)

	st, err := a.SyncStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.Synced)
	require.NotNil(t, st.LastSyncAt)
}
