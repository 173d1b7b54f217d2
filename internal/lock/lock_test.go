package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	l := NewLocalLocker(time.Minute).(*localLocker)
	l.now = func() time.Time { return now }

	release, err := l.Acquire(ctx, "refund:a")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "refund:a")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = l.Acquire(ctx, "refund:b")
	assert.NoError(t, err, "other keys are independent")

	require.NoError(t, release(ctx))
	release2, err := l.Acquire(ctx, "refund:a")
	require.NoError(t, err)

	// A stale release must not drop the new holder.
	require.NoError(t, release(ctx))
	_, err = l.Acquire(ctx, "refund:a")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release2(ctx))
}

func TestLocalLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	l := NewLocalLocker(time.Minute).(*localLocker)
	l.now = func() time.Time { return now }

	_, err := l.Acquire(ctx, "refund:a")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = l.Acquire(ctx, "refund:a")
	assert.NoError(t, err, "expired lock can be taken again")
}
