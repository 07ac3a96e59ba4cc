package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store driver selection.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store      StoreConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	ReadModel  ReadModelConfig
	Selfies    SelfieConfig
}

// StoreConfig selects the authoritative store backend.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig carries the timing knobs of the scan engine.
type AttendanceConfig struct {
	QRValidity           time.Duration
	RotationInterval     time.Duration
	ShortCodeMaxAttempts int
}

// ReadModelConfig governs caching of the course read model.
type ReadModelConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SelfieConfig controls liveness-check payload storage.
type SelfieConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Driver: strings.ToLower(v.GetString("STORE_DRIVER"))}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Attendance = AttendanceConfig{
		QRValidity:           time.Duration(v.GetInt("QR_VALIDITY_SECONDS")) * time.Second,
		RotationInterval:     parseDuration(v.GetString("QR_ROTATION_INTERVAL"), 30*time.Second),
		ShortCodeMaxAttempts: v.GetInt("SHORT_CODE_MAX_ATTEMPTS"),
	}

	cfg.ReadModel = ReadModelConfig{
		CacheEnabled: v.GetBool("ENABLE_READ_MODEL_CACHE"),
		CacheTTL:     parseDuration(v.GetString("READ_MODEL_CACHE_TTL"), time.Minute),
	}

	cfg.Selfies = SelfieConfig{
		StorageDir:        v.GetString("SELFIE_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("SELFIE_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("SELFIE_SIGNED_URL_TTL"), 30*time.Minute),
		WorkerConcurrency: v.GetInt("SELFIE_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("SELFIE_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverMemory)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "smart_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QR_VALIDITY_SECONDS", 60)
	v.SetDefault("QR_ROTATION_INTERVAL", "30s")
	v.SetDefault("SHORT_CODE_MAX_ATTEMPTS", 5)

	v.SetDefault("ENABLE_READ_MODEL_CACHE", false)
	v.SetDefault("READ_MODEL_CACHE_TTL", "1m")

	v.SetDefault("SELFIE_STORAGE_DIR", "./selfies")
	v.SetDefault("SELFIE_SIGNED_URL_SECRET", "dev_selfie_secret")
	v.SetDefault("SELFIE_SIGNED_URL_TTL", "30m")
	v.SetDefault("SELFIE_WORKER_CONCURRENCY", 1)
	v.SetDefault("SELFIE_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
