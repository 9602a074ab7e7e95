package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/dmitrijs2005/sentinelauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Record hashes live at <prefix>:rt:<fingerprint> and expire with the token.
// <prefix>:rtu:<user> is the set of a user's fingerprints. It expires with
// the longest-lived record added to it; members whose hash has expired are
// pruned lazily by revokeAllScript.
//
// Scripts build keys from ARGV, so the store expects a single Redis node or
// a deployment where all its keys share one slot.

const (
	statusMissing   int64 = -1
	statusDuplicate int64 = -2
	statusRevoked   int64 = 0
	statusOK        int64 = 1
)

// extendIndex pushes the expiry of the index set at key out to at (unix ms)
// unless it already lives longer.
const extendIndex = `
local function extendIndex(key, at)
  local ttl = redis.call("PTTL", key)
  if ttl >= 0 then
    local now = redis.call("TIME")
    local current = tonumber(now[1]) * 1000 + math.floor(tonumber(now[2]) / 1000) + ttl
    if current >= tonumber(at) then
      return
    end
  end
  redis.call("PEXPIREAT", key, at)
end
`

const createScript = extendIndex + `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return -2
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1], "user_id", ARGV[2], "fingerprint", ARGV[3],
  "expires_at", ARGV[4], "created_at", ARGV[5], "revoked", "0")
redis.call("PEXPIREAT", KEYS[1], ARGV[4])
redis.call("SADD", KEYS[2], ARGV[3])
extendIndex(KEYS[2], ARGV[4])
return 1
`

var createLua = redis.NewScript(createScript)

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 1 and redis.call("HGET", KEYS[1], "id") == ARGV[1] then
  redis.call("HSET", KEYS[1], "revoked", "1")
end
return 1
`

var revokeLua = redis.NewScript(revokeScript)

const revokeAllScript = `
local n = 0
for _, fp in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local key = ARGV[1] .. fp
  local revoked = redis.call("HGET", key, "revoked")
  if not revoked then
    redis.call("SREM", KEYS[1], fp)
  elseif revoked == "0" then
    redis.call("HSET", key, "revoked", "1")
    n = n + 1
  end
end
return n
`

var revokeAllLua = redis.NewScript(revokeAllScript)

const rotateScript = extendIndex + `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked or redis.call("HGET", KEYS[1], "id") ~= ARGV[6] then
  return -1
end
if revoked == "1" then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -2
end
redis.call("HSET", KEYS[1], "revoked", "1")
redis.call("HSET", KEYS[2],
  "id", ARGV[1], "user_id", ARGV[2], "fingerprint", ARGV[3],
  "expires_at", ARGV[4], "created_at", ARGV[5], "revoked", "0")
redis.call("PEXPIREAT", KEYS[2], ARGV[4])
redis.call("SADD", KEYS[3], ARGV[3])
extendIndex(KEYS[3], ARGV[4])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// RedisStore implements Store on Redis. Each mutating operation is a single
// Lua script.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store namespaced under prefix. A nil clock
// defaults to time.Now; it only stamps CreatedAt.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

func (s *RedisStore) recordPrefix() string {
	return s.prefix + ":rt:"
}

func (s *RedisStore) key(fingerprint string) string {
	return s.recordPrefix() + fingerprint
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":rtu:" + userID
}

func (s *RedisStore) Create(ctx context.Context, userID, fingerprint string, expiresAt time.Time) (*models.RefreshToken, error) {
	t := s.newRecord(userID, fingerprint, expiresAt)

	status, err := createLua.Run(ctx, s.redis,
		[]string{s.key(fingerprint), s.userKey(userID)},
		recordArgs(t)...,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if status == statusDuplicate {
		return nil, common.ErrAlreadyExists
	}
	return t, nil
}

func (s *RedisStore) FindByFingerprint(ctx context.Context, fingerprint string) (*models.RefreshToken, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}
	return parseRecord(fields)
}

func (s *RedisStore) Revoke(ctx context.Context, token *models.RefreshToken) error {
	err := revokeLua.Run(ctx, s.redis, []string{s.key(token.Fingerprint)}, token.ID).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := revokeAllLua.Run(ctx, s.redis, []string{s.userKey(userID)}, s.recordPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Rotate(ctx context.Context, old *models.RefreshToken, newFingerprint string, newExpiresAt time.Time) (*models.RefreshToken, error) {
	t := s.newRecord(old.UserID, newFingerprint, newExpiresAt)

	args := append(recordArgs(t), old.ID)
	status, err := rotateLua.Run(ctx, s.redis,
		[]string{s.key(old.Fingerprint), s.key(newFingerprint), s.userKey(old.UserID)},
		args...,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	switch status {
	case statusOK:
		return t, nil
	case statusRevoked:
		return nil, common.ErrTokenRevoked
	case statusMissing:
		return nil, common.ErrorNotFound
	case statusDuplicate:
		return nil, common.ErrAlreadyExists
	default:
		return nil, fmt.Errorf("redis error: unexpected rotate status %d", status)
	}
}

func (s *RedisStore) newRecord(userID, fingerprint string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Fingerprint: fingerprint,
		ExpiresAt:   expiresAt.Truncate(time.Millisecond),
		CreatedAt:   s.now().Truncate(time.Millisecond),
	}
}

func recordArgs(t *models.RefreshToken) []any {
	return []any{
		t.ID,
		t.UserID,
		t.Fingerprint,
		strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10),
		strconv.FormatInt(t.CreatedAt.UnixMilli(), 10),
	}
}

func parseRecord(fields map[string]string) (*models.RefreshToken, error) {
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	return &models.RefreshToken{
		ID:          fields["id"],
		UserID:      fields["user_id"],
		Fingerprint: fields["fingerprint"],
		ExpiresAt:   time.UnixMilli(expires),
		IsRevoked:   fields["revoked"] == "1",
		CreatedAt:   time.UnixMilli(created),
	}, nil
}
