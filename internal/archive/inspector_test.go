package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/stretchr/testify/require"
)

// writeContainer builds a zip file on disk with the given name -> content map
// in insertion order.
func writeContainer(t *testing.T, entries [][2]string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "container.xapk")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return p
}

func TestInspectClassification(t *testing.T) {
	p := writeContainer(t, [][2]string{
		{"app.apk", "base package bytes"},
		{"split_config.arm64.apk", "arm64 shard"},
		{"main.obb", "game data"},
	})

	insp, err := NewInspector(0).Inspect(p)
	require.NoError(t, err)

	require.NotNil(t, insp.Primary)
	require.Equal(t, "app.apk", insp.Primary.Name)
	require.Equal(t, ClassPrimary, insp.Primary.Class)

	require.Len(t, insp.Splits, 1)
	require.Equal(t, "split_config.arm64.apk", insp.Splits[0].Name)

	require.Len(t, insp.Auxiliary, 1)
	require.Equal(t, "main.obb", insp.Auxiliary[0].Name)
	require.False(t, insp.Auxiliary[0].TooLargeToRelay)
}

func TestInspectFirstPrimaryWins(t *testing.T) {
	p := writeContainer(t, [][2]string{
		{"base.apk", "first"},
		{"another.apk", "second plain package"},
	})

	insp, err := NewInspector(0).Inspect(p)
	require.NoError(t, err)
	require.Equal(t, "base.apk", insp.Primary.Name)

	// the later plain package is demoted, never a second primary
	require.Len(t, insp.Splits, 1)
	require.Equal(t, "another.apk", insp.Splits[0].Name)
}

func TestInspectNoPrimary(t *testing.T) {
	p := writeContainer(t, [][2]string{
		{"split_config.en.apk", "locale shard"},
		{"manifest.json", "{}"},
		{"icon.png", "png"},
	})

	insp, err := NewInspector(0).Inspect(p)
	require.ErrorIs(t, err, domain.ErrNoPrimaryEntry)
	require.Nil(t, insp.Primary)
	require.Len(t, insp.Splits, 1)
}

func TestInspectOversizedAuxiliary(t *testing.T) {
	p := writeContainer(t, [][2]string{
		{"app.apk", "base"},
		{"huge.obb", "0123456789"},
	})

	insp, err := NewInspector(5).Inspect(p)
	require.NoError(t, err)
	require.Len(t, insp.Auxiliary, 1)
	require.True(t, insp.Auxiliary[0].TooLargeToRelay)
}

func TestExtract(t *testing.T) {
	p := writeContainer(t, [][2]string{
		{"app.apk", "base package bytes"},
	})

	ins := NewInspector(0)
	insp, err := ins.Inspect(p)
	require.NoError(t, err)

	data, err := ins.Extract(*insp.Primary)
	require.NoError(t, err)
	require.Equal(t, []byte("base package bytes"), data)
}

func TestInspectNotAZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "not.zip")
	require.NoError(t, os.WriteFile(p, []byte("plain bytes"), 0644))

	_, err := NewInspector(0).Inspect(p)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNoPrimaryEntry)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		want Class
	}{
		{"app.apk", ClassPrimary},
		{"nested/dir/base.apk", ClassPrimary},
		{"split_config.arm64.apk", ClassSplit},
		{"config.xxhdpi.apk", ClassSplit},
		{"split_feature.apk", ClassSplit},
		{"main.310.com.demo.obb", ClassAuxiliary},
		{"manifest.json", ClassOther},
		{"icon.png", ClassOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classify(tc.name))
		})
	}
}
