package fetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/appcourier/appcourier/internal/infra/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir()+"/test.log", logger.LevelError, false)
	require.NoError(t, err)
	return l
}

func TestFetchProgressContract(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1_000_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		// dribble the body so progress crosses many percentages
		for off := 0; off < len(payload); off += 64 * 1024 {
			end := off + 64*1024
			if end > len(payload) {
				end = len(payload)
			}
			w.Write(payload[off:end])
		}
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	f := New(fs, time.Minute, DefaultStep, testLogger(t))

	var emitted []int
	res, err := f.Fetch(context.Background(), srv.URL, "/tmp/demo.apk", func(pct int) {
		emitted = append(emitted, pct)
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), res.BytesTotal)
	require.Equal(t, int64(len(payload)), res.BytesWritten)

	require.NotEmpty(t, emitted)
	require.Equal(t, 0, emitted[0])
	require.Equal(t, 100, emitted[len(emitted)-1])

	for i := 1; i < len(emitted); i++ {
		require.GreaterOrEqual(t, emitted[i], emitted[i-1], "progress must be non-decreasing")
		if emitted[i] != 100 {
			require.GreaterOrEqual(t, emitted[i]-emitted[i-1], DefaultStep,
				"intermediate values must advance by at least the step")
		}
	}

	got, err := afero.ReadFile(fs, "/tmp/demo.apk")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFetchNoDeclaredSizeEmitsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
		fl.Flush() // suppress automatic Content-Length
		w.Write(bytes.Repeat([]byte{1}, 4096))
	}))
	defer srv.Close()

	f := New(afero.NewMemMapFs(), time.Minute, DefaultStep, testLogger(t))

	calls := 0
	res, err := f.Fetch(context.Background(), srv.URL, "/out.bin", func(int) { calls++ })
	require.NoError(t, err)
	require.Zero(t, res.BytesTotal)
	require.Equal(t, int64(4096), res.BytesWritten)
	require.Zero(t, calls)
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(afero.NewMemMapFs(), time.Minute, DefaultStep, testLogger(t))

	_, err := f.Fetch(context.Background(), srv.URL, "/out.bin", nil)
	require.ErrorIs(t, err, domain.ErrBadStatus)
}

func TestFetchStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		w.Write(bytes.Repeat([]byte{1}, 1024))

		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close() // reset mid-body
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	f := New(fs, time.Minute, DefaultStep, testLogger(t))

	_, err := f.Fetch(context.Background(), srv.URL, "/out.bin", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrBadStatus)

	// the partial file is the caller's to discard; it must exist
	exists, statErr := afero.Exists(fs, "/out.bin")
	require.NoError(t, statErr)
	require.True(t, exists)
}

func TestThrottleFirstAndFinalAlwaysEmit(t *testing.T) {
	var got []int
	emit := newThrottle(15, func(p int) { got = append(got, p) })

	for _, p := range []int{0, 0, 3, 9, 14, 15, 20, 29, 30, 40, 100, 100} {
		emit(p)
	}

	require.Equal(t, []int{0, 15, 30, 100}, got)
}
