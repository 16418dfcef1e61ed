package middleware

import (
	"net"
	"strings"
	"sync"
	"time"

	"GuardianSOS/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestAudit 记录写操作审计
type RequestAudit struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;not null" json:"id"`
	UserID          uint      `gorm:"index" json:"userId"`
	Username        string    `gorm:"size:64" json:"username"`
	DeviceID        string    `gorm:"size:128;index" json:"deviceId"`
	Action          string    `gorm:"size:16;not null" json:"action"`  // POST、PUT、PATCH、DELETE
	Target          string    `gorm:"size:255;not null" json:"target"` // 路由模板
	Status          int       `json:"status"`
	IPAddress       string    `gorm:"size:64" json:"ipAddress"`
	UserAgent       string    `gorm:"size:512" json:"userAgent"`
	Device          string    `gorm:"size:64" json:"device"`
	Browser         string    `gorm:"size:64" json:"browser"`
	OperatingSystem string    `gorm:"size:64" json:"operatingSystem"`
	Location        string    `gorm:"size:128" json:"location"`
	LatencyMs       int64     `json:"latencyMs"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// GeoLocator 根据 IP 返回城市名
type GeoLocator interface {
	City(ip string) string
}

// GeoIPLocator reads a MaxMind city database.
type GeoIPLocator struct {
	mu     sync.RWMutex
	reader *geoip2.Reader
}

func NewGeoIPLocator(path string) (*GeoIPLocator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIPLocator{reader: r}, nil
}

func (g *GeoIPLocator) City(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.reader == nil {
		return ""
	}
	record, err := g.reader.City(parsed)
	if err != nil {
		return ""
	}
	if name := record.City.Names["en"]; name != "" {
		return name
	}
	return record.Country.IsoCode
}

func (g *GeoIPLocator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reader == nil {
		return nil
	}
	err := g.reader.Close()
	g.reader = nil
	return err
}

func MigrateAudit(db *gorm.DB) error {
	return db.AutoMigrate(&RequestAudit{})
}

// RequestAuditMiddleware 记录非只读请求；写库失败只打日志，不影响响应
func RequestAuditMiddleware(db *gorm.DB, locator GeoLocator) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "GET", "HEAD", "OPTIONS":
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		entry := BuildAudit(c, locator)
		entry.LatencyMs = time.Since(start).Milliseconds()
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			logger.Warn("request audit write failed", zap.String("target", entry.Target), zap.Error(err))
		}
	}
}

// BuildAudit 从请求上下文组装审计记录
func BuildAudit(c *gin.Context, locator GeoLocator) RequestAudit {
	ip := strings.TrimPrefix(c.ClientIP(), "::ffff:")
	rawUA := c.GetHeader("User-Agent")
	ua := user_agent.New(rawUA)
	browser, version := ua.Browser()

	target := c.FullPath()
	if target == "" {
		target = c.Request.URL.Path
	}
	entry := RequestAudit{
		UserID:          c.GetUint(CtxUserID),
		Username:        c.GetString(CtxUsername),
		DeviceID:        c.GetHeader("X-Device-ID"),
		Action:          c.Request.Method,
		Target:          target,
		Status:          c.Writer.Status(),
		IPAddress:       ip,
		UserAgent:       truncate(rawUA, 512),
		Device:          ua.Platform(),
		Browser:         truncate(strings.TrimSpace(browser+" "+version), 64),
		OperatingSystem: truncate(ua.OS(), 64),
	}
	if locator != nil {
		entry.Location = locator.City(ip)
	}
	return entry
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
