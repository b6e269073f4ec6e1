package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pribylovaa/guanavive/internal/config"

	"github.com/stretchr/testify/require"
)

// runContract — общий набор проверок для любой реализации Store.
func runContract(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	_, err := st.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Set(ctx, KeyAccessToken, "a1"))
	require.NoError(t, st.Set(ctx, KeyRefreshToken, "r1"))
	require.NoError(t, st.Set(ctx, KeyUser, `{"id":"u1"}`))

	v, err := st.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "a1", v)

	// перезапись
	require.NoError(t, st.Set(ctx, KeyAccessToken, "a2"))
	v, err = st.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "a2", v)

	require.NoError(t, st.Delete(ctx, KeyAccessToken, "missing"))
	_, err = st.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	v, err = st.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "r1", v)

	require.NoError(t, st.Delete(ctx, Keys...))
	for _, k := range Keys {
		_, err := st.Get(ctx, k)
		require.ErrorIs(t, err, ErrNotFound, k)
	}

	require.NoError(t, st.Delete(ctx))
}

func TestMemory_Contract(t *testing.T) {
	t.Parallel()
	st := NewMemory()
	defer st.Close()
	runContract(t, st)
}

func TestMemory_CanceledContext(t *testing.T) {
	t.Parallel()
	st := NewMemory()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, st.Set(ctx, KeyUser, "x"), context.Canceled)
	_, err := st.Get(ctx, KeyUser)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFile_Contract(t *testing.T) {
	t.Parallel()
	st, err := NewFile(filepath.Join(t.TempDir(), "nested", "session.json"))
	require.NoError(t, err)
	runContract(t, st)
}

func TestFile_PermissionsAndPersistence(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.json")

	st, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), KeyRefreshToken, "r1"))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	// новый экземпляр видит сохранённое значение
	st2, err := NewFile(path)
	require.NoError(t, err)
	v, err := st2.Get(context.Background(), KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "r1", v)

	// временные файлы не остаются
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFile_CorruptedFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := NewFile(path)
	require.NoError(t, err)

	_, err = st.Get(context.Background(), KeyUser)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestFile_EmptyPath(t *testing.T) {
	t.Parallel()
	_, err := NewFile("")
	require.Error(t, err)
}

func TestFile_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	st, err := NewFile(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, k := range Keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			require.NoError(t, st.Set(context.Background(), k, "v-"+k))
		}(k)
	}
	wg.Wait()

	for _, k := range Keys {
		v, err := st.Get(context.Background(), k)
		require.NoError(t, err)
		require.Equal(t, "v-"+k, v)
	}
}

func TestBolt_Contract(t *testing.T) {
	t.Parallel()
	st, err := NewBolt(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer st.Close()
	runContract(t, st)
}

func TestBolt_Reopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.db")

	st, err := NewBolt(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), KeyAccessToken, "a1"))
	require.NoError(t, st.Close())

	st, err = NewBolt(path)
	require.NoError(t, err)
	defer st.Close()

	v, err := st.Get(context.Background(), KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "a1", v)
}

func TestOpen_Drivers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StorageConfig
		want any
	}{
		{"default", config.StorageConfig{}, &Memory{}},
		{"memory", config.StorageConfig{Driver: config.DriverMemory}, &Memory{}},
		{"file", config.StorageConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "s.json")}, &File{}},
		{"bolt", config.StorageConfig{Driver: config.DriverBolt, Path: filepath.Join(dir, "s.db")}, &Bolt{}},
	}

	for _, tt := range tests {
		st, err := Open(context.Background(), tt.cfg)
		require.NoError(t, err, tt.name)
		require.IsType(t, tt.want, st, tt.name)
		require.NoError(t, st.Close())
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.StorageConfig{Driver: "etcd"})
	require.ErrorContains(t, err, "unknown driver")

	_, err = Open(context.Background(), config.StorageConfig{Driver: config.DriverFile})
	require.Error(t, err)

	_, err = Open(context.Background(), config.StorageConfig{Driver: config.DriverRedis, RedisURL: "::bad"})
	require.Error(t, err)
}

func TestPrefixFor(t *testing.T) {
	t.Parallel()
	require.Equal(t, "guanavive:default:", prefixFor(""))
	require.Equal(t, "guanavive:gw1:", prefixFor("gw1"))
}
