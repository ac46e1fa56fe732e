package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/memoria-app/memoria/internal/client/store"
	"github.com/memoria-app/memoria/internal/logging"
)

func setupRepo(t *testing.T, name string) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db, logging.Nop()))
	return NewSQLiteRepository(db)
}

func TestSetGetRoundTrip(t *testing.T) {
	repo := setupRepo(t, "metadata_roundtrip")
	ctx := context.Background()

	got, err := repo.Get(ctx, "last_sync_attempt:record")
	require.NoError(t, err)
	require.Nil(t, got, "absent key reads as nil, not an error")

	require.NoError(t, repo.Set(ctx, "last_sync_attempt:record", []byte("2026-08-25T10:00:00Z")))
	require.NoError(t, repo.Set(ctx, "last_sync_attempt:record", []byte("2026-08-25T12:00:00Z")))

	got, err = repo.Get(ctx, "last_sync_attempt:record")
	require.NoError(t, err)
	require.Equal(t, []byte("2026-08-25T12:00:00Z"), got, "set overwrites")
}

func TestDeleteAndList(t *testing.T) {
	repo := setupRepo(t, "metadata_list")
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1")))
	require.NoError(t, repo.Set(ctx, "b", []byte("2")))
	require.NoError(t, repo.Delete(ctx, "a"))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"b": []byte("2")}, all)

	require.NoError(t, repo.Clear(ctx))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
