package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SessionStorage {
	t.Helper()
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionStorageRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("sid", []byte("payload"), 0))
	val, err := s.Get("sid")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)

	require.NoError(t, s.Delete("sid"))
	val, err = s.Get("sid")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSessionStorageMissingKey(t *testing.T) {
	s := newTestStorage(t)

	val, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSessionStorageExpiry(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("sid", []byte("payload"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	val, err := s.Get("sid")
	require.NoError(t, err)
	assert.Nil(t, val, "expired entries read as missing")
}

func TestSessionStorageSweepDropsExpired(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("stale", []byte("a"), 10*time.Millisecond))
	require.NoError(t, s.Set("fresh", []byte("b"), time.Hour))
	time.Sleep(30 * time.Millisecond)

	s.sweep()

	val, err := s.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), val)

	val, err = s.Get("stale")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSessionStorageReset(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, s.Reset())

	val, err := s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSessionStorageSweepSurvivesClosedDatabase(t *testing.T) {
	s, err := NewSessionStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Set("sid", []byte("payload"), 10*time.Millisecond))
	require.NoError(t, s.Close())

	// The update fails on a closed database; the sweep logs and moves on.
	s.sweep()
}
