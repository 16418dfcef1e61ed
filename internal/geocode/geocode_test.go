package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"GuardianSOS/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder(t *testing.T) {
	addr, err := Placeholder{}.ReverseGeocode(context.Background(), 37.5, 127.0)
	require.NoError(t, err)
	assert.Equal(t, "위도: 37.500000, 경도: 127.000000 부근", addr)
}

func TestKakao(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/local/geo/coord2address.json", r.URL.Path)
		assert.Equal(t, "KakaoAK key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "127.0276", r.URL.Query().Get("x"))
		assert.Equal(t, "37.4979", r.URL.Query().Get("y"))
		w.Write([]byte(`{"documents":[{"road_address":{"address_name":"서울 강남구 강남대로 396"},"address":{"address_name":"서울 강남구 역삼동 858"}}]}`))
	}))
	defer srv.Close()

	addr, err := NewKakao("key-1", srv.URL, srv.Client()).ReverseGeocode(context.Background(), 37.4979, 127.0276)
	require.NoError(t, err)
	assert.Equal(t, "서울 강남구 강남대로 396", addr)
}

func TestKakaoFallsBackToLotAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documents":[{"road_address":null,"address":{"address_name":"강원 평창군 대관령면 횡계리 1"}}]}`))
	}))
	defer srv.Close()
	addr, err := NewKakao("k", srv.URL, nil).ReverseGeocode(context.Background(), 37.6, 128.7)
	require.NoError(t, err)
	assert.Equal(t, "강원 평창군 대관령면 횡계리 1", addr)
}

func TestKakaoErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("y") == "0" {
			w.Write([]byte(`{"documents":[]}`))
			return
		}
		http.Error(w, `{"msg":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	k := NewKakao("bad", srv.URL, nil)

	_, err := k.ReverseGeocode(context.Background(), 37.5, 127)
	assert.Error(t, err)
	_, err = k.ReverseGeocode(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoAddress)
}

type geoFunc func(ctx context.Context, lat, lng float64) (string, error)

func (f geoFunc) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return f(ctx, lat, lng)
}

func TestResolveFallbacks(t *testing.T) {
	ctx := context.Background()

	addr, ok := Resolve(ctx, geoFunc(func(context.Context, float64, float64) (string, error) {
		return "", errors.New("down")
	}), 37.5, 127.0, time.Second)
	assert.False(t, ok)
	assert.Equal(t, "좌표: 37.500000, 127.000000", addr)

	addr, ok = Resolve(ctx, geoFunc(func(context.Context, float64, float64) (string, error) {
		return "", nil
	}), 1, 2, time.Second)
	assert.False(t, ok)
	assert.Equal(t, "좌표: 1.000000, 2.000000", addr)

	slow := geoFunc(func(ctx context.Context, _, _ float64) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	start := time.Now()
	addr, ok = Resolve(ctx, slow, 37.5, 127.0, 20*time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
	assert.NotEmpty(t, addr)

	addr, ok = Resolve(ctx, nil, 37.5, 127.0, 0)
	assert.False(t, ok)
	assert.Equal(t, "좌표: 37.500000, 127.000000", addr)

	addr, ok = Resolve(ctx, Placeholder{}, 37.5, 127.0, time.Second)
	assert.True(t, ok)
	assert.Equal(t, "위도: 37.500000, 경도: 127.000000 부근", addr)
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	next := geoFunc(func(_ context.Context, lat, lng float64) (string, error) {
		calls.Add(1)
		if lat < 0 {
			return "", errors.New("bad")
		}
		return "서울", nil
	})
	g := NewCached(next, cache.NewLocalCache(cache.LocalConfig{MaxSize: 10}), time.Hour)

	for i := 0; i < 3; i++ {
		addr, err := g.ReverseGeocode(context.Background(), 37.5, 127.0)
		require.NoError(t, err)
		assert.Equal(t, "서울", addr)
	}
	assert.Equal(t, int32(1), calls.Load())

	// failures are not cached
	_, err := g.ReverseGeocode(context.Background(), -1, 0)
	assert.Error(t, err)
	_, err = g.ReverseGeocode(context.Background(), -1, 0)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNew(t *testing.T) {
	assert.IsType(t, Placeholder{}, New("", "", "", nil, 0))
	assert.IsType(t, Placeholder{}, New("kakao", "", "", nil, 0))
	assert.IsType(t, &Kakao{}, New("kakao", "k", "", nil, 0))
	assert.IsType(t, &Cached{}, New("kakao", "k", "", cache.NewLocalCache(cache.LocalConfig{}), time.Hour))
}
