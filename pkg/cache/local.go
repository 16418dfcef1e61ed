package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/cast"
)

type localItem struct {
	value      interface{}
	expiration time.Time
}

func (i localItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// localCache 基于 golang-lru 的进程内缓存，过期在读取时惰性判断
type localCache struct {
	config LocalConfig
	lru    *lru.Cache[string, localItem]
	// 复合操作（SetNX/Increment）需要读改写原子性
	mu sync.Mutex
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	l, _ := lru.New[string, localItem](size)
	return &localCache{config: config, lru: l}
}

func (lc *localCache) expiry(expiration time.Duration) time.Time {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}
	if expiration <= 0 {
		return time.Time{}
	}
	return time.Now().Add(expiration)
}

func (lc *localCache) load(key string) (localItem, bool) {
	item, ok := lc.lru.Get(key)
	if !ok {
		return localItem{}, false
	}
	if item.expired(time.Now()) {
		lc.lru.Remove(key)
		return localItem{}, false
	}
	return item, true
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	item, ok := lc.load(key)
	return item.value, ok
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	lc.lru.Add(key, localItem{value: value, expiration: lc.expiry(expiration)})
	return nil
}

func (lc *localCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if _, ok := lc.load(key); ok {
		return false, nil
	}
	lc.lru.Add(key, localItem{value: value, expiration: lc.expiry(expiration)})
	return true, nil
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.load(key)
	return ok
}

func (lc *localCache) Clear(ctx context.Context) error {
	lc.lru.Purge()
	return nil
}

func (lc *localCache) Increment(ctx context.Context, key string, value int64) (int64, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	item, ok := lc.load(key)
	if !ok {
		lc.lru.Add(key, localItem{value: value, expiration: lc.expiry(0)})
		return value, nil
	}
	cur, err := cast.ToInt64E(item.value)
	if err != nil {
		return 0, fmt.Errorf("value of %s is not an integer: %w", key, err)
	}
	item.value = cur + value
	lc.lru.Add(key, item)
	return cur + value, nil
}

func (lc *localCache) GetWithTTL(ctx context.Context, key string) (interface{}, time.Duration, bool) {
	item, ok := lc.load(key)
	if !ok {
		return nil, 0, false
	}
	var ttl time.Duration
	if !item.expiration.IsZero() {
		ttl = time.Until(item.expiration)
	}
	return item.value, ttl, true
}

func (lc *localCache) Close() error { return nil }
