package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/config"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./domainwatch.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./domainwatch.db", dsn)
	})

	t.Run("PlainPathCreatesDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "domainwatch.db")

		dsn, err := buildLibsqlDSN(config.StoreConfig{Path: path})
		require.NoError(t, err)
		require.Equal(t, "file:"+path, dsn)
		require.DirExists(t, filepath.Dir(path))
	})

	t.Run("PathMissing", func(t *testing.T) {
		_, err := buildLibsqlDSN(config.StoreConfig{})
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestBuildSQLiteDSN(t *testing.T) {
	t.Run("MemoryPath", func(t *testing.T) {
		dsn, err := buildSQLiteDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})

	t.Run("AddsPragmas", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "domainwatch.db")

		dsn, err := buildSQLiteDSN(config.StoreConfig{Path: path})
		require.NoError(t, err)
		require.Contains(t, dsn, path+"?")
		require.Contains(t, dsn, "busy_timeout")
	})

	t.Run("KeepsExplicitQuery", func(t *testing.T) {
		dsn, err := buildSQLiteDSN(config.StoreConfig{Path: "file:test.db?mode=memory"})
		require.NoError(t, err)
		require.Equal(t, "file:test.db?mode=memory", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		_, err := buildSQLiteDSN(config.StoreConfig{})
		require.Error(t, err)
	})
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), config.StoreConfig{Driver: "mysql", Path: ":memory:"})
	require.ErrorContains(t, err, "unsupported store driver")
}

func TestOpenPostgresRequiresURL(t *testing.T) {
	_, err := Open(t.Context(), config.StoreConfig{Driver: "postgres"})
	require.ErrorContains(t, err, "store url is required")
}

func TestNilStoreIsNotInitialized(t *testing.T) {
	var s *Store
	require.ErrorIs(t, s.Migrate(t.Context()), errNotInitialized)
	_, err := s.GetMemory(t.Context(), "m", "is_registered")
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, s.Close())
	require.Empty(t, s.Driver())
}
