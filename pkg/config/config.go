package config

import (
	"log"
	"os"
	"time"

	"GuardianSOS/pkg/cache"
	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/notification"
	"GuardianSOS/pkg/storage"
	"GuardianSOS/pkg/util"

	"github.com/spf13/cast"
)

type Config struct {
	DBDriver        string `env:"DB_DRIVER"`
	DSN             string `env:"DSN"`
	Log             logger.LogConfig
	Mail            notification.MailConfig
	SMS             notification.SMSConfig
	Cache           cache.Config
	Storage         storage.Config
	Addr            string `env:"ADDR"`
	GRPCAddr        string `env:"GRPC_ADDR"`
	Mode            string `env:"MODE"`
	APIPrefix       string `env:"API_PREFIX"`
	LanguageEnabled bool   `env:"LANGUAGE_ENABLED"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpire    time.Duration `env:"JWT_EXPIRE"`
	DeviceSecret string        `env:"DEVICE_SECRET"`
	// ulule formatted rate, e.g. "30-M"
	DeviceRateLimit string        `env:"DEVICE_RATE_LIMIT"`
	IdempotencyTTL  time.Duration `env:"IDEMPOTENCY_TTL"`
	GeoIPPath       string        `env:"GEOIP_PATH"`

	LLMProvider  string        `env:"LLM_PROVIDER"`
	LLMApiKey    string        `env:"LLM_API_KEY"`
	LLMBaseURL   string        `env:"LLM_BASE_URL"`
	LLMModel     string        `env:"LLM_MODEL"`
	LLMMaxTokens int           `env:"LLM_MAX_TOKENS"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT"`

	GeocoderProvider string        `env:"GEOCODER_PROVIDER"`
	KakaoAPIKey      string        `env:"KAKAO_API_KEY"`
	KakaoBaseURL     string        `env:"KAKAO_BASE_URL"`
	GeocodeTimeout   time.Duration `env:"GEOCODE_TIMEOUT"`
	GeocodeCacheTTL  time.Duration `env:"GEOCODE_CACHE_TTL"`

	NotifySendTimeout time.Duration `env:"NOTIFY_SEND_TIMEOUT"`
	Workers           int           `env:"NOTIFY_WORKERS"`
	QueueSize         int           `env:"NOTIFY_QUEUE_SIZE"`

	BackupEnabled  bool   `env:"BACKUP_ENABLED"`
	BackupPath     string `env:"BACKUP_PATH"`
	BackupSchedule string `env:"BACKUP_SCHEDULE"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		DBDriver:        util.GetEnvOr("DB_DRIVER", "sqlite"),
		DSN:             util.GetEnvOr("DSN", "guardian.db"),
		Addr:            util.GetEnvOr("ADDR", ":8080"),
		GRPCAddr:        util.GetEnv("GRPC_ADDR"),
		Mode:            util.GetEnvOr("MODE", "debug"),
		APIPrefix:       util.GetEnvOr("API_PREFIX", "/api"),
		LanguageEnabled: cast.ToBool(util.GetEnvOr("LANGUAGE_ENABLED", "true")),
		DefaultLanguage: util.GetEnvOr("DEFAULT_LANGUAGE", "ko"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Mail: notification.MailConfig{
			Host:     util.GetEnv("MAIL_HOST"),
			Username: util.GetEnv("MAIL_USERNAME"),
			Password: util.GetEnv("MAIL_PASSWORD"),
			Port:     util.GetIntEnvOr("MAIL_PORT", 587),
			From:     util.GetEnv("MAIL_FROM"),
		},
		SMS: notification.SMSConfig{
			Provider:   util.GetEnvOr("SMS_PROVIDER", "log"),
			AccountSID: util.GetEnv("TWILIO_ACCOUNT_SID"),
			AuthToken:  util.GetEnv("TWILIO_AUTH_TOKEN"),
			From:       util.GetEnv("TWILIO_FROM"),
			BaseURL:    util.GetEnv("TWILIO_BASE_URL"),
		},
		Cache: cache.Config{
			Type: util.GetEnvOr("CACHE_TYPE", "local"),
			Redis: cache.RedisConfig{
				Addr:         util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
				Password:     util.GetEnv("REDIS_PASSWORD"),
				DB:           int(util.GetIntEnv("REDIS_DB")),
				PoolSize:     int(util.GetIntEnvOr("REDIS_POOL_SIZE", 10)),
				MinIdleConns: int(util.GetIntEnvOr("REDIS_MIN_IDLE_CONNS", 2)),
				DialTimeout:  util.GetDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  util.GetDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: util.GetDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Local: cache.LocalConfig{
				MaxSize:           int(util.GetIntEnvOr("LOCAL_CACHE_MAX_SIZE", 10000)),
				DefaultExpiration: util.GetDurationEnv("LOCAL_CACHE_DEFAULT_EXPIRATION", 5*time.Minute),
				CleanupInterval:   util.GetDurationEnv("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
		Storage: storage.Config{
			Driver:       util.GetEnv("STORAGE_DRIVER"),
			LocalPath:    util.GetEnvOr("STORAGE_LOCAL_PATH", "data/audio"),
			LocalBaseURL: util.GetEnv("STORAGE_LOCAL_BASE_URL"),
			Minio: storage.MinioConfig{
				Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
				AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
				SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
				Bucket:    util.GetEnv("MINIO_BUCKET"),
				UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
				BaseURL:   util.GetEnv("MINIO_PUBLIC_BASE"),
			},
			COS: storage.COSConfig{
				BucketURL: util.GetEnv("COS_BUCKET_URL"),
				SecretID:  util.GetEnv("COS_SECRET_ID"),
				SecretKey: util.GetEnv("COS_SECRET_KEY"),
			},
		},
		JWTSecret:         util.GetEnv("JWT_SECRET"),
		JWTExpire:         util.GetDurationEnv("JWT_EXPIRE", 24*time.Hour),
		DeviceSecret:      util.GetEnv("DEVICE_SECRET"),
		DeviceRateLimit:   util.GetEnvOr("DEVICE_RATE_LIMIT", "30-M"),
		IdempotencyTTL:    util.GetDurationEnv("IDEMPOTENCY_TTL", 10*time.Minute),
		GeoIPPath:         util.GetEnv("GEOIP_PATH"),
		LLMProvider:       util.GetEnvOr("LLM_PROVIDER", "openai"),
		LLMApiKey:         util.GetEnv("LLM_API_KEY"),
		LLMBaseURL:        util.GetEnv("LLM_BASE_URL"),
		LLMModel:          util.GetEnvOr("LLM_MODEL", "gpt-3.5-turbo"),
		LLMMaxTokens:      int(util.GetIntEnvOr("LLM_MAX_TOKENS", 500)),
		LLMTimeout:        util.GetDurationEnv("LLM_TIMEOUT", 15*time.Second),
		GeocoderProvider:  util.GetEnv("GEOCODER_PROVIDER"),
		KakaoAPIKey:       util.GetEnv("KAKAO_API_KEY"),
		KakaoBaseURL:      util.GetEnvOr("KAKAO_BASE_URL", "https://dapi.kakao.com"),
		GeocodeTimeout:    util.GetDurationEnv("GEOCODE_TIMEOUT", 5*time.Second),
		GeocodeCacheTTL:   util.GetDurationEnv("GEOCODE_CACHE_TTL", 24*time.Hour),
		NotifySendTimeout: util.GetDurationEnv("NOTIFY_SEND_TIMEOUT", 10*time.Second),
		Workers:           int(util.GetIntEnvOr("NOTIFY_WORKERS", 8)),
		QueueSize:         int(util.GetIntEnvOr("NOTIFY_QUEUE_SIZE", 256)),
		BackupEnabled:     util.GetBoolEnv("BACKUP_ENABLED"),
		BackupPath:        util.GetEnvOr("BACKUP_PATH", "backups"),
		BackupSchedule:    util.GetEnvOr("BACKUP_SCHEDULE", "0 3 * * *"),
	}
	return nil
}
