package refreshtokens

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "sa", nil)
	ctx := context.Background()

	rec, err := s.Create(ctx, "u1", "fp1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, mr.Exists("sa:rt:fp1"))
	assert.Equal(t, rec.ID, mr.HGet("sa:rt:fp1", "id"))
	assert.Equal(t, "0", mr.HGet("sa:rt:fp1", "revoked"))

	members, err := mr.Members("sa:rtu:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fp1"}, members)

	ttl := mr.TTL("sa:rt:fp1")
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestRedisStore_ExpiredRecordIsGoneAndPruned(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "sa", nil)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", "fp1", time.Now().Add(time.Minute))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.FindByFingerprint(ctx, "fp1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := s.RevokeAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, mr.Exists("sa:rtu:u1"))
}

func TestRedisStore_RotateAfterExpiryIsNotFound(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "sa", nil)
	ctx := context.Background()

	old, err := s.Create(ctx, "u1", "fp1", time.Now().Add(time.Minute))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.Rotate(ctx, old, "fp2", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.False(t, mr.Exists("sa:rt:fp2"))
}

func TestRedisStore_UserIndexExpiresWithLongestRecord(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "sa", nil)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", "fp1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	ttl := mr.TTL("sa:rtu:u1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	long, err := s.Create(ctx, "u1", "fp2", time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("sa:rtu:u1"), 119*time.Minute)

	// A shorter-lived record must not shrink the index.
	_, err = s.Create(ctx, "u1", "fp3", time.Now().Add(30*time.Minute))
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("sa:rtu:u1"), 119*time.Minute)

	_, err = s.Rotate(ctx, long, "fp4", time.Now().Add(3*time.Hour))
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("sa:rtu:u1"), 179*time.Minute)
}

func TestRedisStore_RevokeIgnoresForeignRecord(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisStore(client, "sa", nil)
	ctx := context.Background()

	rec, err := s.Create(ctx, "u1", "fp1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	stale := *rec
	stale.ID = "other"
	require.NoError(t, s.Revoke(ctx, &stale))

	got, err := s.FindByFingerprint(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, got.IsRevoked)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "sa", nil)
	mr.Close()

	_, err := s.FindByFingerprint(context.Background(), "fp1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}
