package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
)

func newTestSession(t *testing.T) *RistrettoSessionStore {
	t.Helper()
	s, err := NewRistrettoSessionStore(16, time.Hour, 5)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionAppendAndRetrieve(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	require.NoError(t, s.Append(ctx, testOwner, "sess-1", model.Interaction{Input: "hi", Output: "hello"}))
	require.NoError(t, s.Append(ctx, testOwner, "sess-1", model.Interaction{Input: "deploy the service"}))

	log, err := s.Interactions(ctx, testOwner, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "hi", log[0].Input, "chronological order")
	assert.Equal(t, "deploy the service", log[1].Input)
	assert.False(t, log[0].Timestamp.IsZero())
}

func TestSessionCap(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Append(ctx, testOwner, "sess-1", model.Interaction{
			Input: fmt.Sprintf("turn %d", i),
		}))
	}

	log, err := s.Interactions(ctx, testOwner, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, log, 5, "log trims to the most recent entries")
	assert.Equal(t, "turn 3", log[0].Input)
	assert.Equal(t, "turn 7", log[4].Input)
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	require.NoError(t, s.Append(ctx, testOwner, "sess-1", model.Interaction{Input: "a"}))

	other, err := s.Interactions(ctx, "99999999-9999-9999-9999-999999999999", "sess-1", 0)
	require.NoError(t, err)
	assert.Empty(t, other, "sessions are keyed per owner")

	missing, err := s.Interactions(ctx, testOwner, "no-such-session", 0)
	require.NoError(t, err)
	assert.Empty(t, missing, "an evicted or unknown session is an empty log")
}

func TestSessionClear(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	require.NoError(t, s.Append(ctx, testOwner, "sess-1", model.Interaction{Input: "a"}))
	require.NoError(t, s.Clear(ctx, testOwner, "sess-1"))

	log, err := s.Interactions(ctx, testOwner, "sess-1", 0)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestSessionClosed(t *testing.T) {
	ctx := context.Background()
	s, err := NewRistrettoSessionStore(16, time.Hour, 5)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Append(ctx, testOwner, "sess-1", model.Interaction{Input: "a"})
	assert.True(t, memerr.IsUnavailable(err))
	assert.True(t, memerr.IsUnavailable(s.Ping(ctx)))
	require.NoError(t, s.Close(), "double close is fine")
}
