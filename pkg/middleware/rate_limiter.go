package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiterConfig 限流配置
//
// Rate 为 ulule 格式，如 "30-M"；Identifier 取 "ip" / "user" / "header"。
// 设备上报按 X-Device-ID 计数，同一设备重复触发不会挤占其他设备的额度。
type RateLimiterConfig struct {
	Rate       string
	Identifier string
	HeaderName string
	// 封禁网段直接拒绝
	BlacklistCIDRs []string
	// 前缀匹配，跳过限流
	SkipPaths   []string
	AddHeaders  bool
	DenyMessage func(c *gin.Context) string
}

// NewRedisLimiterStore 多实例部署时共享计数
func NewRedisLimiterStore(client *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

// MetricsObserver is satisfied by *metrics.Metrics.
type MetricsObserver interface {
	OnAllow(route string, key string)
	OnDeny(route string, key string)
}

type RateLimiter struct {
	cfg      RateLimiterConfig
	lim      *limiter.Limiter
	observer MetricsObserver
	blocked  []*net.IPNet
	mu       sync.RWMutex
}

// NewRateLimiter store 为 nil 时使用进程内存储；Rate 无法解析时退回 10-S
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		rate = limiter.Rate{Period: time.Second, Limit: 10}
	}
	l := &RateLimiter{cfg: cfg, lim: limiter.New(store, rate)}
	for _, c := range cfg.BlacklistCIDRs {
		if _, n, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			l.blocked = append(l.blocked, n)
		}
	}
	return l
}

func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = observer
	return l
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if l.skipped(route) {
			c.Next()
			return
		}

		ip := strings.TrimPrefix(c.ClientIP(), "::ffff:")
		if l.isBlocked(ip) {
			l.report(route, "blacklist", false)
			l.deny(c)
			return
		}

		key := l.key(c, ip)
		lctx, err := l.lim.Get(c, key)
		if err != nil {
			// 存储故障放行，告警不能因限流器不可用而丢失
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.Itoa(secondsUntil(lctx.Reset)))
		}
		if lctx.Reached {
			c.Header("Retry-After", strconv.Itoa(secondsUntil(lctx.Reset)))
			l.report(route, key, false)
			l.deny(c)
			return
		}
		l.report(route, key, true)
		c.Next()
	}
}

func (l *RateLimiter) key(c *gin.Context, ip string) string {
	switch l.cfg.Identifier {
	case "user":
		if id := c.GetUint(CtxUserID); id != 0 {
			return "user:" + strconv.FormatUint(uint64(id), 10)
		}
	case "header":
		if v := strings.TrimSpace(c.GetHeader(l.cfg.HeaderName)); v != "" {
			return "hdr:" + l.cfg.HeaderName + ":" + v
		}
	}
	return "ip:" + ip
}

func (l *RateLimiter) skipped(route string) bool {
	for _, p := range l.cfg.SkipPaths {
		if p != "" && strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

func (l *RateLimiter) isBlocked(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range l.blocked {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func (l *RateLimiter) report(route, key string, allowed bool) {
	l.mu.RLock()
	obs := l.observer
	l.mu.RUnlock()
	if obs == nil {
		return
	}
	if allowed {
		obs.OnAllow(route, key)
	} else {
		obs.OnDeny(route, key)
	}
}

func (l *RateLimiter) deny(c *gin.Context) {
	msg := "Too Many Requests"
	if l.cfg.DenyMessage != nil {
		msg = l.cfg.DenyMessage(c)
	}
	response.AbortWithStatus(c, http.StatusTooManyRequests, msg)
}

func secondsUntil(unix int64) int {
	sec := int(time.Until(time.Unix(unix, 0)).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
