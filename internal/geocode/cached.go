package geocode

import (
	"context"
	"fmt"
	"time"

	"GuardianSOS/pkg/cache"
)

// Cached 按坐标（保留 5 位小数，约 1m）缓存地址
type Cached struct {
	next  Geocoder
	cache cache.Cache
	ttl   time.Duration
}

func NewCached(next Geocoder, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("geo:%.5f:%.5f", lat, lng)
}

func (g *Cached) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := cacheKey(lat, lng)
	if v, ok := g.cache.Get(ctx, key); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	addr, err := g.next.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	_ = g.cache.Set(ctx, key, addr, g.ttl)
	return addr, nil
}

// New builds the configured geocoder: "kakao" or the placeholder.
func New(provider, kakaoKey, kakaoBaseURL string, c cache.Cache, ttl time.Duration) Geocoder {
	var g Geocoder = Placeholder{}
	if provider == "kakao" && kakaoKey != "" {
		g = NewKakao(kakaoKey, kakaoBaseURL, nil)
	}
	if c != nil {
		g = NewCached(g, c, ttl)
	}
	return g
}
