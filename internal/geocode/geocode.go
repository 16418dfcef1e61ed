package geocode

import (
	"context"
	"fmt"
	"time"

	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
)

// Geocoder resolves coordinates into a human readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// Placeholder 无外部服务时使用，只回显坐标
type Placeholder struct{}

func (Placeholder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return fmt.Sprintf("위도: %.6f, 경도: %.6f 부근", lat, lng), nil
}

// FallbackAddress 地理编码失败时的地址文本，永不为空
func FallbackAddress(lat, lng float64) string {
	return fmt.Sprintf("좌표: %.6f, %.6f", lat, lng)
}

// Resolve bounds g with timeout and never fails: any error, timeout or empty
// answer yields FallbackAddress. ok reports whether g produced the address.
func Resolve(ctx context.Context, g Geocoder, lat, lng float64, timeout time.Duration) (addr string, ok bool) {
	if g == nil {
		return FallbackAddress(lat, lng), false
	}
	gctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	addr, err := g.ReverseGeocode(gctx, lat, lng)
	if err != nil || addr == "" {
		logger.Warn("reverse geocoding failed, using coordinates",
			zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Error(err))
		return FallbackAddress(lat, lng), false
	}
	return addr, true
}
