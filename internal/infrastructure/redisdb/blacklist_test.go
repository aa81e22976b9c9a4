package redisdb

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlacklist(t *testing.T) *Blacklist {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewBlacklist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestBlacklist_RevokeAndCheck(t *testing.T) {
	bl := newTestBlacklist(t)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "token-a"))

	revoked, err = bl.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Other tokens stay unaffected.
	revoked, err = bl.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklist_RevokeIsIdempotent(t *testing.T) {
	bl := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "token-a"))
	require.NoError(t, bl.Revoke(ctx, "token-a"))

	revoked, err := bl.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)
}
