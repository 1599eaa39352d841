package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	"github.com/AlibekovAA/taskflow/backend/internal/common/db"
)

const (
	redisTokenPrefix = "refresh_token:"
	redisIDPrefix    = "refresh_token_id:"
	redisUserPrefix  = "refresh_token_user:"
)

// Removes the record stored under token key `key` (hash `hash`) together with
// its id and user index entries. Expects redisIDPrefix and redisUserPrefix as
// id_prefix and user_prefix.
const luaDeleteRecord = `
local function delete_record(key, hash, id_prefix, user_prefix)
  local fields = redis.call('HMGET', key, 'id', 'user_id')
  if fields[1] then
    redis.call('DEL', id_prefix .. fields[1])
  end
  if fields[2] then
    redis.call('SREM', user_prefix .. fields[2], hash)
  end
  return redis.call('DEL', key)
end
`

// Records of one deployment share a TTL, so the newest record always has the
// latest expiry and the user index can simply follow it.
const luaCreateRecord = `
local function create_record(key, hash, id, user_id, expires_ms, created_ms, id_prefix, user_prefix)
  redis.call('HSET', key, 'id', id, 'user_id', user_id, 'expires_at', expires_ms, 'created_at', created_ms)
  redis.call('PEXPIREAT', key, expires_ms)
  redis.call('SET', id_prefix .. id, hash)
  redis.call('PEXPIREAT', id_prefix .. id, expires_ms)
  redis.call('SADD', user_prefix .. user_id, hash)
  redis.call('PEXPIREAT', user_prefix .. user_id, expires_ms)
end
`

var createRefreshLua = redis.NewScript(luaCreateRecord + `
create_record(KEYS[1], ARGV[1], ARGV[2], ARGV[3], ARGV[4], ARGV[5], ARGV[6], ARGV[7])
return 1
`)

var deleteByTokenLua = redis.NewScript(luaDeleteRecord + `
return delete_record(KEYS[1], ARGV[1], ARGV[2], ARGV[3])
`)

var deleteByIDLua = redis.NewScript(luaDeleteRecord + `
local hash = redis.call('GET', KEYS[1])
if not hash then
  return 0
end
return delete_record(ARGV[1] .. hash, hash, ARGV[2], ARGV[3])
`)

var deleteByUserLua = redis.NewScript(luaDeleteRecord + `
local hashes = redis.call('SMEMBERS', KEYS[1])
local removed = 0
for _, hash in ipairs(hashes) do
  removed = removed + delete_record(ARGV[1] .. hash, hash, ARGV[2], ARGV[3])
end
redis.call('DEL', KEYS[1])
return removed
`)

var rotateRefreshLua = redis.NewScript(luaDeleteRecord + luaCreateRecord + `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
delete_record(KEYS[1], ARGV[1], ARGV[7], ARGV[8])
create_record(KEYS[2], ARGV[2], ARGV[3], ARGV[4], ARGV[5], ARGV[6], ARGV[7], ARGV[8])
return 1
`)

// RedisRefreshTokenRepository keeps each record in a hash that Redis expires
// on its own at ExpiresAt. Multi-key changes run as Lua scripts.
type RedisRefreshTokenRepository struct {
	client redis.UniversalClient
}

func NewRedisRefreshTokenRepository(client redis.UniversalClient) *RedisRefreshTokenRepository {
	return &RedisRefreshTokenRepository{client: client}
}

func (r *RedisRefreshTokenRepository) Create(ctx context.Context, token authdomain.RefreshToken) error {
	start := time.Now()
	err := createRefreshLua.Run(
		ctx,
		r.client,
		[]string{redisTokenPrefix + token.TokenHash},
		token.TokenHash,
		token.ID,
		token.UserID,
		token.ExpiresAt.UnixMilli(),
		token.CreatedAt.UnixMilli(),
		redisIDPrefix,
		redisUserPrefix,
	).Err()
	return db.HandleExecError(err, "create refresh token in redis", start)
}

func (r *RedisRefreshTokenRepository) FindExact(ctx context.Context, tokenHash string, userID string) (authdomain.RefreshToken, error) {
	start := time.Now()
	fields, err := r.client.HGetAll(ctx, redisTokenPrefix+tokenHash).Result()
	if err != nil {
		return authdomain.RefreshToken{}, db.HandleQueryError(err, nil, "find refresh token in redis", start)
	}
	db.MeasureQueryDuration("find refresh token in redis", start)

	if len(fields) == 0 || fields["user_id"] != userID {
		return authdomain.RefreshToken{}, ErrRefreshTokenNotFound
	}

	expiresMs, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return authdomain.RefreshToken{}, fmt.Errorf("failed to decode refresh token expiry: %w", err)
	}
	createdMs, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return authdomain.RefreshToken{}, fmt.Errorf("failed to decode refresh token creation time: %w", err)
	}

	return authdomain.RefreshToken{
		ID:        fields["id"],
		TokenHash: tokenHash,
		UserID:    fields["user_id"],
		ExpiresAt: time.UnixMilli(expiresMs).UTC(),
		CreatedAt: time.UnixMilli(createdMs).UTC(),
	}, nil
}

func (r *RedisRefreshTokenRepository) DeleteByToken(ctx context.Context, tokenHash string) error {
	start := time.Now()
	err := deleteByTokenLua.Run(
		ctx,
		r.client,
		[]string{redisTokenPrefix + tokenHash},
		tokenHash,
		redisIDPrefix,
		redisUserPrefix,
	).Err()
	return db.HandleExecError(err, "delete refresh token in redis", start)
}

func (r *RedisRefreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	start := time.Now()
	err := deleteByIDLua.Run(
		ctx,
		r.client,
		[]string{redisIDPrefix + id},
		redisTokenPrefix,
		redisIDPrefix,
		redisUserPrefix,
	).Err()
	return db.HandleExecError(err, "delete refresh token by id in redis", start)
}

func (r *RedisRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	start := time.Now()
	removed, err := deleteByUserLua.Run(
		ctx,
		r.client,
		[]string{redisUserPrefix + userID},
		redisTokenPrefix,
		redisIDPrefix,
		redisUserPrefix,
	).Int64()
	if err != nil {
		return 0, db.HandleExecError(err, "delete refresh tokens by user in redis", start)
	}
	db.MeasureQueryDuration("delete refresh tokens by user in redis", start)
	return removed, nil
}

func (r *RedisRefreshTokenRepository) Rotate(ctx context.Context, oldTokenHash string, next authdomain.RefreshToken) error {
	start := time.Now()
	rotated, err := rotateRefreshLua.Run(
		ctx,
		r.client,
		[]string{redisTokenPrefix + oldTokenHash, redisTokenPrefix + next.TokenHash},
		oldTokenHash,
		next.TokenHash,
		next.ID,
		next.UserID,
		next.ExpiresAt.UnixMilli(),
		next.CreatedAt.UnixMilli(),
		redisIDPrefix,
		redisUserPrefix,
	).Int64()
	if err != nil {
		return db.HandleExecError(err, "rotate refresh token in redis", start)
	}
	db.MeasureQueryDuration("rotate refresh token in redis", start)
	if rotated == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts records at their expiry.
func (r *RedisRefreshTokenRepository) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
