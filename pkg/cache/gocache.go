package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper go-cache包装器
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache 创建基于go-cache的本地缓存
func NewGoCache(config LocalConfig) Cache {
	// 将配置转换为go-cache的配置
	defaultExpiration := config.DefaultExpiration
	cleanupInterval := config.CleanupInterval

	// 创建go-cache实例
	c := gocache.New(defaultExpiration, cleanupInterval)

	return &goCacheWrapper{
		cache: c,
	}
}

// Get 获取缓存值
func (gc *goCacheWrapper) Get(ctx context.Context, key string) (interface{}, bool) {
	if value, found := gc.cache.Get(key); found {
		return value, true
	}
	return nil, false
}

// Set 设置缓存值
func (gc *goCacheWrapper) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	gc.cache.Set(key, value, expiration)
	return nil
}

// Delete 删除缓存
func (gc *goCacheWrapper) Delete(ctx context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

// SetNX 仅当键不存在时设置
func (gc *goCacheWrapper) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if err := gc.cache.Add(key, value, expiration); err != nil {
		return false, nil
	}
	return true, nil
}

// Exists 检查键是否存在
func (gc *goCacheWrapper) Exists(ctx context.Context, key string) bool {
	_, found := gc.cache.Get(key)
	return found
}

// Clear 清空所有缓存
func (gc *goCacheWrapper) Clear(ctx context.Context) error {
	gc.cache.Flush()
	return nil
}

// Increment 自增
func (gc *goCacheWrapper) Increment(ctx context.Context, key string, value int64) (int64, error) {
	if newValue, err := gc.cache.IncrementInt64(key, value); err == nil {
		return newValue, nil
	}
	// 键不存在时写入初始值；并发下 Add 失败则重试一次自增
	if err := gc.cache.Add(key, value, gocache.DefaultExpiration); err != nil {
		return gc.cache.IncrementInt64(key, value)
	}
	return value, nil
}

// GetWithTTL 获取值并返回剩余TTL
func (gc *goCacheWrapper) GetWithTTL(ctx context.Context, key string) (interface{}, time.Duration, bool) {
	// go-cache没有直接获取TTL的方法，但我们可以通过GetWithExpiration获取
	if value, expiration, found := gc.cache.GetWithExpiration(key); found {
		var ttl time.Duration
		if !expiration.IsZero() {
			ttl = time.Until(expiration)
			if ttl < 0 {
				ttl = 0
			}
		}
		return value, ttl, true
	}
	return nil, 0, false
}

// Close 关闭缓存连接
func (gc *goCacheWrapper) Close() error {
	// go-cache不需要关闭连接
	return nil
}

// ItemCount 获取缓存项数量
func (gc *goCacheWrapper) ItemCount() int {
	return gc.cache.ItemCount()
}
