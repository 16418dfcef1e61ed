package handlers

import (
	"time"

	"GuardianSOS/internal/auth"
	"GuardianSOS/internal/contacts"
	"GuardianSOS/internal/emergency"
	"GuardianSOS/internal/location"
	"GuardianSOS/internal/validation"
	"GuardianSOS/pkg/cache"
	"GuardianSOS/pkg/i18n"
	"GuardianSOS/pkg/metrics"
	"GuardianSOS/pkg/middleware"
	"GuardianSOS/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"gorm.io/gorm"
)

type Options struct {
	DB        *gorm.DB
	APIPrefix string

	Emergency *emergency.Service
	Auth      *auth.Service
	Contacts  *contacts.Service
	Location  *location.Service

	I18n    *i18n.I18nSupport
	Hub     *sse.Hub
	Metrics *metrics.Metrics

	// false 时固定使用默认语言
	NegotiateLanguage bool

	// 设备接口保护
	DeviceSecret    string
	DeviceRateLimit string
	RateLimitStore  limiter.Store
	RateObserver    middleware.MetricsObserver
	IdemCache       cache.Cache
	IdempotencyTTL  time.Duration
	GeoLocator      middleware.GeoLocator
}

type Handlers struct {
	db        *gorm.DB
	prefix    string
	emergency *emergency.Service
	auth      *auth.Service
	contacts  *contacts.Service
	location  *location.Service
	i18n      *i18n.I18nSupport
	hub       *sse.Hub
	metrics   *metrics.Metrics
	opts      Options
}

func NewHandlers(opts Options) *Handlers {
	validation.Register()
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	return &Handlers{
		db:        opts.DB,
		prefix:    opts.APIPrefix,
		emergency: opts.Emergency,
		auth:      opts.Auth,
		contacts:  opts.Contacts,
		location:  opts.Location,
		i18n:      opts.I18n,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		opts:      opts,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	if h.metrics != nil {
		engine.Use(metrics.Middleware(h.metrics))
		engine.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	r := engine.Group(h.prefix)
	if h.i18n != nil && h.opts.NegotiateLanguage {
		r.Use(middleware.LanguageMiddleware(h.i18n))
	}
	if h.db != nil {
		r.Use(middleware.RequestAuditMiddleware(h.db, h.opts.GeoLocator))
	}

	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Business Module Routes
	h.registerAuthRoutes(r)
	h.registerEmergencyRoutes(r)
	h.registerUserRoutes(r)
	h.registerLocationRoutes(r)
	h.registerAdminRoutes(r)
}

func (h *Handlers) authRequired() gin.HandlerFunc {
	return auth.Required(h.auth.Tokens(), h.msgFunc("unauthorized"))
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
	}
}

func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	a := r.Group("auth")
	{
		a.POST("/signup", h.handleSignup)

		a.POST("/login", h.handleLogin)

		a.POST("/logout", h.authRequired(), h.handleLogout)
	}
}

func (h *Handlers) registerEmergencyRoutes(r *gin.RouterGroup) {
	em := r.Group("emergency")

	// 设备上报：签名 -> 限流 -> 幂等
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:        h.opts.DeviceRateLimit,
		Identifier:  "header",
		HeaderName:  "X-Device-ID",
		AddHeaders:  true,
		DenyMessage: h.msgFunc("rate_limited"),
	}, h.opts.RateLimitStore)
	if h.opts.RateObserver != nil {
		rl.WithObserver(h.opts.RateObserver)
	}
	em.POST("/alert",
		middleware.DeviceSignatureMiddleware(middleware.DeviceSignatureConfig{
			Secret:  h.opts.DeviceSecret,
			Message: h.msgFunc("signature_invalid"),
		}),
		rl.Middleware(),
		middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			TTL:     h.opts.IdempotencyTTL,
			Store:   h.idemStore(),
			Message: h.msgFunc("duplicate_request"),
		}),
		h.handleCreateAlert,
	)

	alerts := em.Group("alerts", h.authRequired())
	{
		alerts.GET("", h.handleListAlerts)

		alerts.GET("/stream", h.handleAlertStream)

		alerts.GET("/:id", h.handleGetAlert)

		alerts.PATCH("/:id/resolve", h.handleResolveAlert)

		alerts.PATCH("/:id/false-alarm", h.handleFalseAlarm)

		alerts.PATCH("/:id/in-progress", h.handleInProgress)
	}
}

func (h *Handlers) registerUserRoutes(r *gin.RouterGroup) {
	user := r.Group("user", h.authRequired())
	{
		user.GET("/me", h.handleUserInfo)

		user.POST("/emergency-contacts", h.handleAddContact)

		user.GET("/emergency-contacts", h.handleListContacts)

		user.PUT("/emergency-contacts/:id", h.handleUpdateContact)

		user.DELETE("/emergency-contacts/:id", h.handleDeleteContact)
	}
}

func (h *Handlers) registerLocationRoutes(r *gin.RouterGroup) {
	loc := r.Group("location", h.authRequired())
	{
		loc.GET("/history", h.handleLocationHistory)

		loc.GET("/recent", h.handleRecentLocations)

		loc.GET("/history/range", h.handleLocationRange)
	}
}

func (h *Handlers) registerAdminRoutes(r *gin.RouterGroup) {
	admin := r.Group("admin", h.authRequired(), h.adminRequired)
	{
		admin.GET("/alerts", h.handleSearchAlerts)
	}
}

func (h *Handlers) idemStore() middleware.IdemStore {
	if h.opts.IdemCache == nil {
		return nil
	}
	return middleware.NewCacheIdemStore(h.opts.IdemCache)
}
