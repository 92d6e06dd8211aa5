package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	RunMigrations bool

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Slots    SlotsConfig
	Booking  BookingConfig
	Calendar CalendarConfig
	Meetings MeetingsConfig
	Metrics  MetricsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify bearer tokens issued by
// the identity service.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SlotsConfig tunes slot search defaults and limits.
type SlotsConfig struct {
	DefaultDuration time.Duration
	DefaultStep     time.Duration
	MaxWindow       time.Duration
}

// BookingConfig controls booking defaults and the optional per-mentor lock.
type BookingConfig struct {
	DefaultDuration time.Duration
	LockEnabled     bool
	LockTTL         time.Duration
}

// CalendarConfig configures the external calendar provider.
type CalendarConfig struct {
	BaseURL      string
	Timeout      time.Duration
	Strict       bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MeetingsConfig toggles post-booking meeting provisioning.
type MeetingsConfig struct {
	Enabled bool
	Workers int
	Retries int
}

type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.RunMigrations = v.GetBool("RUN_MIGRATIONS")

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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Slots = SlotsConfig{
		DefaultDuration: minutes(v.GetInt("SLOTS_DEFAULT_DURATION"), time.Hour),
		DefaultStep:     minutes(v.GetInt("SLOTS_DEFAULT_STEP"), time.Hour),
		MaxWindow:       parseDuration(v.GetString("SLOTS_MAX_WINDOW"), 31*24*time.Hour),
	}

	cfg.Booking = BookingConfig{
		DefaultDuration: minutes(v.GetInt("BOOKING_DEFAULT_DURATION"), 50*time.Minute),
		LockEnabled:     v.GetBool("ENABLE_BOOKING_LOCK"),
		LockTTL:         parseDuration(v.GetString("BOOKING_LOCK_TTL"), 10*time.Second),
	}

	cfg.Calendar = CalendarConfig{
		BaseURL:      strings.TrimRight(v.GetString("CALENDAR_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("CALENDAR_TIMEOUT"), 2*time.Second),
		Strict:       v.GetBool("CALENDAR_STRICT"),
		CacheEnabled: v.GetBool("ENABLE_CALENDAR_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CALENDAR_CACHE_TTL"), time.Minute),
	}

	cfg.Meetings = MeetingsConfig{
		Enabled: v.GetBool("ENABLE_MEETINGS"),
		Workers: v.GetInt("MEETINGS_WORKERS"),
		Retries: v.GetInt("MEETINGS_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("RUN_MIGRATIONS", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mentor_scheduling")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SLOTS_DEFAULT_DURATION", 60)
	v.SetDefault("SLOTS_DEFAULT_STEP", 60)
	v.SetDefault("SLOTS_MAX_WINDOW", "744h")

	v.SetDefault("BOOKING_DEFAULT_DURATION", 50)
	v.SetDefault("ENABLE_BOOKING_LOCK", false)
	v.SetDefault("BOOKING_LOCK_TTL", "10s")

	v.SetDefault("CALENDAR_BASE_URL", "")
	v.SetDefault("CALENDAR_TIMEOUT", "2s")
	v.SetDefault("CALENDAR_STRICT", false)
	v.SetDefault("ENABLE_CALENDAR_CACHE", false)
	v.SetDefault("CALENDAR_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_MEETINGS", false)
	v.SetDefault("MEETINGS_WORKERS", 2)
	v.SetDefault("MEETINGS_RETRIES", 3)

	v.SetDefault("ENABLE_METRICS", true)
}

func minutes(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Minute
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
