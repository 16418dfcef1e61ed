package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	HeaderDeviceSignature = "X-Device-Signature"
	HeaderDeviceTimestamp = "X-Device-Timestamp"
)

// SignPayload 生成 HMAC 签名: method + path + body + timestamp
func SignPayload(secret, method, path string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

type DeviceSignatureConfig struct {
	Secret string
	// MaxSkew 允许的时间戳偏差，默认 5 分钟
	MaxSkew time.Duration
	Message func(c *gin.Context) string
	now     func() time.Time
}

// DeviceSignatureMiddleware verifies X-Device-Signature. With an empty secret it is a no-op.
func DeviceSignatureMiddleware(cfg DeviceSignatureConfig) gin.HandlerFunc {
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = 5 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	deny := func(c *gin.Context) {
		msg := "invalid signature"
		if cfg.Message != nil {
			msg = cfg.Message(c)
		}
		response.AbortWithStatus(c, http.StatusUnauthorized, msg)
	}
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			c.Next()
			return
		}
		signature := c.GetHeader(HeaderDeviceSignature)
		timestamp := c.GetHeader(HeaderDeviceTimestamp)
		if signature == "" || timestamp == "" {
			deny(c)
			return
		}
		sec, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			deny(c)
			return
		}
		skew := cfg.now().Sub(time.Unix(sec, 0))
		if skew < -cfg.MaxSkew || skew > cfg.MaxSkew {
			deny(c)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			deny(c)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		expected := SignPayload(cfg.Secret, c.Request.Method, c.Request.URL.Path, body, timestamp)
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			deny(c)
			return
		}
		c.Next()
	}
}
