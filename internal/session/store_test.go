package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/stretchr/testify/require"
)

func testCandidates(n int) []domain.CatalogCandidate {
	out := make([]domain.CatalogCandidate, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.CatalogCandidate{
			Identifier: fmt.Sprintf("com.example.app%d", i),
			Title:      fmt.Sprintf("App %d", i),
		})
	}
	return out
}

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.schedule = func(time.Duration, func()) {} // timers driven manually in tests
	return s, &now
}

func TestResolveEveryValidIndex(t *testing.T) {
	const n = 5

	for idx := 1; idx <= n; idx++ {
		s, _ := newTestStore(0)
		cands := testCandidates(n)
		s.Put("conv-1", cands)

		got, err := s.Resolve("conv-1", idx)
		require.NoError(t, err)
		require.Equal(t, cands[idx-1], got)

		// single consumption: the session is gone now
		_, err = s.Resolve("conv-1", idx)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	}
}

func TestResolveErrors(t *testing.T) {
	testCases := []struct {
		name    string
		key     string
		index   int
		advance time.Duration
		wantErr error
	}{
		{name: "unknown key", key: "nope", index: 1, wantErr: domain.ErrSessionNotFound},
		{name: "index zero", key: "conv-1", index: 0, wantErr: domain.ErrIndexOutOfRange},
		{name: "index past end", key: "conv-1", index: 4, wantErr: domain.ErrIndexOutOfRange},
		{name: "negative index", key: "conv-1", index: -2, wantErr: domain.ErrIndexOutOfRange},
		{name: "expired", key: "conv-1", index: 1, advance: DefaultTTL + time.Second, wantErr: domain.ErrSessionExpired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, now := newTestStore(0)
			s.Put("conv-1", testCandidates(3))
			*now = now.Add(tc.advance)

			_, err := s.Resolve(tc.key, tc.index)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestExpiredResolveRemovesEntry(t *testing.T) {
	s, now := newTestStore(0)
	s.Put("conv-1", testCandidates(2))

	*now = now.Add(DefaultTTL)
	_, err := s.Resolve("conv-1", 1)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	require.False(t, s.Has("conv-1"))

	// and a retry sees NotFound, not Expired
	_, err = s.Resolve("conv-1", 1)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestIndexErrorPreservesSession(t *testing.T) {
	s, _ := newTestStore(0)
	cands := testCandidates(2)
	s.Put("conv-1", cands)

	_, err := s.Resolve("conv-1", 7)
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	got, err := s.Resolve("conv-1", 2)
	require.NoError(t, err)
	require.Equal(t, cands[1], got)
}

func TestPutReplacesAndStaleTimerIsIgnored(t *testing.T) {
	s, now := newTestStore(0)

	first := s.Put("conv-1", testCandidates(1))

	*now = now.Add(10 * time.Second)
	fresh := s.Put("conv-1", testCandidates(3))
	require.True(t, fresh.CreatedAt.After(first.CreatedAt))

	// the first session's timer fires after the key was superseded: it must
	// not remove the fresher session
	s.ExpireIfStale("conv-1", first.CreatedAt)
	require.True(t, s.Has("conv-1"))

	// the fresh session's own timer still works
	s.ExpireIfStale("conv-1", fresh.CreatedAt)
	require.False(t, s.Has("conv-1"))
}

func TestScheduledExpiryFires(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	s.Put("conv-1", testCandidates(1))

	require.Eventually(t, func() bool {
		return !s.Has("conv-1")
	}, time.Second, 5*time.Millisecond)

	_, err := s.Resolve("conv-1", 1)
	require.True(t, errors.Is(err, domain.ErrSessionNotFound))
}
