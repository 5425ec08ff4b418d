package janitor

import (
	"testing"
	"time"

	"github.com/appcourier/appcourier/internal/infra/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestJanitor(t *testing.T, fs afero.Fs) *Janitor {
	t.Helper()
	l, err := logger.New("", logger.LevelError, false)
	require.NoError(t, err)
	return New(fs, "tmp", time.Minute, time.Hour, l)
}

func TestSweepRemovesOnlyStaleFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("tmp", 0755))

	require.NoError(t, afero.WriteFile(fs, "tmp/stale.apk", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "tmp/fresh.apk", []byte("x"), 0644))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fs.Chtimes("tmp/stale.apk", old, old))

	j := newTestJanitor(t, fs)
	require.Equal(t, 1, j.Sweep())

	_, err := fs.Stat("tmp/stale.apk")
	require.Error(t, err)

	_, err = fs.Stat("tmp/fresh.apk")
	require.NoError(t, err)
}

func TestSweepSkipsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("tmp/nested", 0755))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fs.Chtimes("tmp/nested", old, old))

	j := newTestJanitor(t, fs)
	require.Zero(t, j.Sweep())

	ok, err := afero.DirExists(fs, "tmp/nested")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSweepMissingDirIsQuiet(t *testing.T) {
	j := newTestJanitor(t, afero.NewMemMapFs())
	require.Zero(t, j.Sweep())
}
