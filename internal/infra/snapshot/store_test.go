package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pysnip/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := openTestStore(t)
	cachedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := domain.CatalogSnapshot{
		Root:     "/srv/tools",
		CachedAt: cachedAt,
		Catalog: domain.Catalog{
			RootPath:  "/srv/tools",
			ToolCount: 1,
			Categories: []domain.Category{
				{Key: "utility", Tools: []domain.Tool{{Key: "hello", Path: "utility/hello/hello.py"}}},
			},
		},
	}
	require.NoError(t, store.Save(snap))

	loaded, ok, err := store.Load("/srv/tools")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, cachedAt.Equal(loaded.CachedAt))
	require.Equal(t, "utility/hello/hello.py", loaded.Catalog.Categories[0].Tools[0].Path)

	_, ok, err = store.Load("/srv/other")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreOverwriteAndDelete(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Save(domain.CatalogSnapshot{Root: "/a", Catalog: domain.Catalog{ToolCount: 1}}))
	require.NoError(t, store.Save(domain.CatalogSnapshot{Root: "/a", Catalog: domain.Catalog{ToolCount: 2}}))

	loaded, ok, err := store.Load("/a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, loaded.Catalog.ToolCount)

	require.NoError(t, store.Delete("/a"))
	_, ok, err = store.Load("/a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreRejectsEmptyRootAndClosed(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)

	err = store.Save(domain.CatalogSnapshot{})
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInvalidArgument, code)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	_, _, err = store.Load("/a")
	require.ErrorIs(t, err, ErrStoreClosed)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
