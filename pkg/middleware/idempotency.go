package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"GuardianSOS/pkg/cache"
	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IdemStore interface {
	// Acquire returns true if key was free and is now held for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// CacheIdemStore 基于 cache.SetNX，local / redis 均可
type CacheIdemStore struct {
	c      cache.Cache
	prefix string
}

func NewCacheIdemStore(c cache.Cache) *CacheIdemStore {
	return &CacheIdemStore{c: c, prefix: "idem:"}
}

func (s *CacheIdemStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.c.SetNX(ctx, s.prefix+key, 1, ttl)
}

func (s *CacheIdemStore) Release(ctx context.Context, key string) error {
	return s.c.Delete(ctx, s.prefix+key)
}

type IdempotencyConfig struct {
	HeaderName string        // Idempotency-Key 的请求头名
	TTL        time.Duration // 决定一段时间内重复请求的拒绝窗口
	Store      IdemStore
	// HashBody 无请求头时以 method+path+body 的哈希作为幂等键
	HashBody bool
	Message  func(c *gin.Context) string
}

func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Store == nil {
		cfg.Store = NewCacheIdemStore(cache.NewLocalCache(cache.LocalConfig{MaxSize: 10000}))
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" && cfg.HashBody {
			b, err := io.ReadAll(c.Request.Body)
			if err != nil {
				response.AbortWithStatus(c, http.StatusBadRequest, err.Error())
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(b))
			h := sha256.New()
			h.Write([]byte(c.Request.Method + c.Request.URL.Path))
			h.Write(b)
			key = hex.EncodeToString(h.Sum(nil))
		}
		if key == "" {
			c.Next()
			return
		}
		ok, err := cfg.Store.Acquire(c.Request.Context(), key, cfg.TTL)
		if err != nil {
			// 存储不可用时放行，不能因此丢弃告警
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			msg := "duplicate request"
			if cfg.Message != nil {
				msg = cfg.Message(c)
			}
			response.AbortWithStatus(c, http.StatusConflict, msg)
			return
		}
		c.Next()

		// 失败的请求不占用幂等键，设备可以用同一个键重试
		if c.Writer.Status() >= http.StatusBadRequest {
			if err := cfg.Store.Release(context.WithoutCancel(c.Request.Context()), key); err != nil {
				logger.Warn("idempotency key release failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
}
