package lock_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/infra/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	mr, client := setupRedis(t)
	l := lock.NewRedisLocker(client, lock.RedisConfig{KeyPrefix: "test:checkout", Wait: 100 * time.Millisecond, RetryDelay: 10 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:checkout:42"))

	// 同じ顧客はタイムアウト
	_, err = l.Lock(context.Background(), 42)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)

	// 別の顧客は取れる
	unlockOther, err := l.Lock(context.Background(), 43)
	require.NoError(t, err)
	unlockOther()

	unlock()
	assert.False(t, mr.Exists("test:checkout:42"))

	unlock2, err := l.Lock(context.Background(), 42)
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupRedis(t)
	l := lock.NewRedisLocker(client, lock.RedisConfig{KeyPrefix: "test:checkout", TTL: time.Second})

	unlock, err := l.Lock(context.Background(), 7)
	require.NoError(t, err)

	// 期限切れ後に他のプロセスが取り直した状態
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:checkout:7", "someone-else"))

	unlock()
	v, err := mr.Get("test:checkout:7")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLocker_ContextCanceled(t *testing.T) {
	_, client := setupRedis(t)
	l := lock.NewRedisLocker(client, lock.RedisConfig{Wait: time.Second, RetryDelay: 10 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker(t *testing.T) {
	l := lock.NewLocalLocker(50 * time.Millisecond)

	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), 1)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)

	unlock()
	unlock() // 2回呼んでも問題ない

	unlock, err = l.Lock(context.Background(), 1)
	require.NoError(t, err)
	unlock()
}
