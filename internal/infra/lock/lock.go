// Package lock は顧客ごとのチェックアウトロック。
// 在庫の減算自体は条件付きUPDATEなので、ロックが外れても二重に減ることはない。
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockTimeout = errors.New("checkout lock timeout")

// トークンが一致するときだけ消す（他人のロックを消さない）
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	KeyPrefix string
	// ロックの有効期限（プロセスが落ちても残らないように）
	TTL time.Duration
	// 取得を待つ最大時間
	Wait time.Duration
	// 再試行の間隔
	RetryDelay time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		KeyPrefix:  "storefront:checkout",
		TTL:        10 * time.Second,
		Wait:       5 * time.Second,
		RetryDelay: 50 * time.Millisecond,
	}
}

// RedisLocker は SET NX PX で取るロック。
type RedisLocker struct {
	client *redis.Client
	cfg    RedisConfig
}

func NewRedisLocker(client *redis.Client, cfg RedisConfig) *RedisLocker {
	def := DefaultRedisConfig()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Wait <= 0 {
		cfg.Wait = def.Wait
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	return &RedisLocker{client: client, cfg: cfg}
}

func (l *RedisLocker) key(customerID int64) string {
	return fmt.Sprintf("%s:%d", l.cfg.KeyPrefix, customerID)
}

func (l *RedisLocker) Lock(ctx context.Context, customerID int64) (func(), error) {
	key := l.key(customerID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire checkout lock: %w", err)
		}
		if ok {
			return func() {
				//リクエストのctxがキャンセル済みでも解放できるように
				_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		t := time.NewTimer(l.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// LocalLocker はプロセス内のロック（メモリストレージ用）。
// 保持者も待ち手もいなくなった顧客のスロットはmapから消す。
type LocalLocker struct {
	mu    sync.Mutex
	slots map[int64]*localSlot
	wait  time.Duration
}

type localSlot struct {
	ch   chan struct{}
	refs int // 保持者と待ち手の数
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = DefaultRedisConfig().Wait
	}
	return &LocalLocker{slots: map[int64]*localSlot{}, wait: wait}
}

func (l *LocalLocker) acquire(customerID int64) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[customerID]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[customerID] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) release(customerID int64, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, customerID)
	}
}

func (l *LocalLocker) Lock(ctx context.Context, customerID int64) (func(), error) {
	s := l.acquire(customerID)

	t := time.NewTimer(l.wait)
	defer t.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(customerID, s)
			})
		}, nil
	case <-ctx.Done():
		l.release(customerID, s)
		return nil, ctx.Err()
	case <-t.C:
		l.release(customerID, s)
		return nil, ErrLockTimeout
	}
}
