package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GuardianSOS/internal/analysis"
	"GuardianSOS/internal/auth"
	"GuardianSOS/internal/contacts"
	"GuardianSOS/internal/emergency"
	"GuardianSOS/internal/geocode"
	handlers "GuardianSOS/internal/handler"
	"GuardianSOS/internal/listeners"
	"GuardianSOS/internal/location"
	"GuardianSOS/internal/models"
	"GuardianSOS/internal/notifier"
	"GuardianSOS/pkg/backup"
	"GuardianSOS/pkg/cache"
	"GuardianSOS/pkg/config"
	"GuardianSOS/pkg/grpcx"
	"GuardianSOS/pkg/i18n"
	"GuardianSOS/pkg/llm"
	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/metrics"
	"GuardianSOS/pkg/middleware"
	"GuardianSOS/pkg/notification"
	"GuardianSOS/pkg/scheduler"
	"GuardianSOS/pkg/sse"
	"GuardianSOS/pkg/storage"
	"GuardianSOS/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	// 1. 配置与日志
	if err := config.Load(); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := config.GlobalConfig
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// 2. 数据库
	db, err := util.InitDatabase(cfg.DBDriver, cfg.DSN, cfg.Mode == "debug")
	if err != nil {
		logger.Error("init database failed", zap.Error(err))
		os.Exit(1)
	}
	if err := models.Migrate(db); err != nil {
		logger.Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}
	if err := middleware.MigrateAudit(db); err != nil {
		logger.Error("migrate audit failed", zap.Error(err))
		os.Exit(1)
	}

	// 3. 基础组件
	kv, err := cache.NewCache(cfg.Cache)
	if err != nil {
		logger.Error("init cache failed", zap.Error(err))
		os.Exit(1)
	}
	defer kv.Close()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		// 音频存储不影响告警主流程
		logger.Warn("object storage disabled", zap.Error(err))
		store = nil
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	metrics.SetGlobal(m)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. 外部能力：LLM / 地理编码 / 通知
	var classifier *analysis.Classifier
	model, err := llm.New(rootCtx, cfg.LLMProvider, cfg.LLMApiKey, cfg.LLMBaseURL, analysis.SystemPrompt, logrus.StandardLogger())
	if err != nil {
		logger.Warn("llm unavailable, keyword fallback only", zap.Error(err))
		classifier = analysis.NewClassifier(nil, cfg.LLMTimeout)
	} else {
		classifier = analysis.NewClassifier(analysis.NewLLMAnalyzer(model, cfg.LLMModel, cfg.LLMMaxTokens), cfg.LLMTimeout)
	}

	geocoder := geocode.New(cfg.GeocoderProvider, cfg.KakaoAPIKey, cfg.KakaoBaseURL, kv, cfg.GeocodeCacheTTL)

	sms, err := notification.NewSMSSender(cfg.SMS)
	if err != nil {
		logger.Error("init sms failed", zap.Error(err))
		os.Exit(1)
	}
	sender := notifier.New(sms, notification.NewMailNotification(cfg.Mail), cfg.NotifySendTimeout).WithMetrics(m)

	pool := scheduler.NewPool(cfg.Workers, cfg.QueueSize)
	hub := sse.NewHub(15 * time.Second)

	// 5. 业务服务
	alerts := emergency.NewService(emergency.Deps{
		DB:             db,
		Classifier:     classifier,
		Geocoder:       geocoder,
		GeocodeTimeout: cfg.GeocodeTimeout,
		Sender:         sender,
		Pool:           pool,
		Store:          store,
		Metrics:        m,
		Events:         listeners.NewAlertListener(hub),
	})

	tr, err := i18n.NewI18nSupport(cfg.DefaultLanguage)
	if err != nil {
		logger.Error("init i18n failed", zap.Error(err))
		os.Exit(1)
	}

	var geo middleware.GeoLocator
	if cfg.GeoIPPath != "" {
		if g, err := middleware.NewGeoIPLocator(cfg.GeoIPPath); err != nil {
			logger.Warn("geoip disabled", zap.Error(err))
		} else {
			geo = g
			defer g.Close()
		}
	}

	h := handlers.NewHandlers(handlers.Options{
		DB:                db,
		APIPrefix:         cfg.APIPrefix,
		Emergency:         alerts,
		Auth:              auth.NewService(db, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire, kv)),
		Contacts:          contacts.NewService(db),
		Location:          location.NewService(db),
		I18n:              tr,
		Hub:               hub,
		Metrics:           m,
		NegotiateLanguage: cfg.LanguageEnabled,
		DeviceSecret:      cfg.DeviceSecret,
		DeviceRateLimit:   cfg.DeviceRateLimit,
		RateLimitStore:    rateLimitStore(kv),
		RateObserver:      m,
		IdemCache:         kv,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		GeoLocator:        geo,
	})

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.Register(engine)

	// 6. 定时任务
	cr := scheduler.NewCron(time.Local)
	if cfg.BackupEnabled {
		b := backup.New(backup.Config{
			DBDriver: cfg.DBDriver,
			DSN:      cfg.DSN,
			Path:     cfg.BackupPath,
			Schedule: cfg.BackupSchedule,
			Keep:     7,
		}, db)
		if err := b.Schedule(cr); err != nil {
			logger.Warn("backup schedule invalid", zap.String("schedule", cfg.BackupSchedule), zap.Error(err))
		}
	}
	cr.Start()

	tick := scheduler.New()
	tick.Every(time.Minute, scheduler.FuncJob(func(ctx context.Context) {
		if err := alerts.RefreshPendingGauge(ctx); err != nil {
			logger.Warn("refresh pending gauge failed", zap.Error(err))
		}
	}))
	tick.Every(30*time.Second, scheduler.FuncJob(func(ctx context.Context) { m.CollectSystem() }))

	// 7. gRPC 健康检查
	var gs *grpc.Server
	if cfg.GRPCAddr != "" {
		gs = grpcx.NewServer(grpcx.ServerConfig{Addr: cfg.GRPCAddr, UnaryTimeout: 5 * time.Second})
		health := grpcx.RegisterHealth(gs, h.PingDB)
		health.Probe(rootCtx)
		tick.Every(15*time.Second, scheduler.FuncJob(health.Probe))
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen failed", zap.Error(err))
			os.Exit(1)
		}
		go func() {
			logger.Info("grpc server started", zap.String("addr", cfg.GRPCAddr))
			if err := gs.Serve(lis); err != nil {
				logger.Warn("grpc server stopped", zap.Error(err))
			}
		}()
		defer health.Shutdown()
	}

	// 8. HTTP
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	tick.Stop()
	cr.Stop()
	// 排空通知队列，已受理的告警都要发出
	if err := pool.Shutdown(ctx); err != nil {
		logger.Warn("notify pool drain incomplete", zap.Error(err))
	}
	if gs != nil {
		gs.GracefulStop()
	}
}

// rateLimitStore 使用 redis 缓存时多实例共享限流计数
func rateLimitStore(kv cache.Cache) limiter.Store {
	rc, ok := kv.(interface{ Client() *redis.Client })
	if !ok {
		return nil
	}
	st, err := middleware.NewRedisLimiterStore(rc.Client(), "guardian:rl")
	if err != nil {
		logger.Warn("redis limiter store unavailable, using memory", zap.Error(err))
		return nil
	}
	return st
}
