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

// Favorites backends.
const (
	FavoritesBackendRedis  = "redis"
	FavoritesBackendMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Search        SearchConfig
	Listings      ListingsConfig
	Favorites     FavoritesConfig
	Notifications NotificationsConfig
	Visits        VisitsConfig
	Storage       StorageConfig
	Payments      PaymentsConfig
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SearchConfig bounds the over-fetch performed by the listing search pipeline.
// The fetch limit is max(FetchFloor, pageSize*FetchMultiplier); once the number of
// searchable listings exceeds it, totals become lower bounds.
type SearchConfig struct {
	FetchFloor      int
	FetchMultiplier int
	DefaultPageSize int
	MaxPageSize     int
}

// ListingsConfig governs the listing lifecycle.
type ListingsConfig struct {
	RequireReview       bool
	TTL                 time.Duration
	ExpirySweepInterval time.Duration
	CacheTTL            time.Duration
}

// FavoritesConfig selects the device-local favorites store.
type FavoritesConfig struct {
	Backend string
}

// NotificationsConfig tunes the live notification hub.
type NotificationsConfig struct {
	SubscriberBuffer int
}

// VisitsConfig sizes the visit recording worker pool.
type VisitsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// StorageConfig controls listing image storage & validation.
type StorageConfig struct {
	Dir              string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// PaymentsConfig holds processor credentials and promotion pricing.
type PaymentsConfig struct {
	StripeSecretKey        string
	StripeWebhookSecret    string
	SuccessURL             string
	CancelURL              string
	Currency               string
	PromotionCreditsPerDay int
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Search = SearchConfig{
		FetchFloor:      positiveOr(v.GetInt("SEARCH_FETCH_FLOOR"), 200),
		FetchMultiplier: positiveOr(v.GetInt("SEARCH_FETCH_MULTIPLIER"), 10),
		DefaultPageSize: positiveOr(v.GetInt("SEARCH_DEFAULT_PAGE_SIZE"), 20),
		MaxPageSize:     positiveOr(v.GetInt("SEARCH_MAX_PAGE_SIZE"), 100),
	}

	cfg.Listings = ListingsConfig{
		RequireReview:       v.GetBool("LISTINGS_REQUIRE_REVIEW"),
		TTL:                 parseDuration(v.GetString("LISTINGS_TTL"), 30*24*time.Hour),
		ExpirySweepInterval: parseDuration(v.GetString("LISTINGS_EXPIRY_SWEEP_INTERVAL"), time.Hour),
		CacheTTL:            parseDuration(v.GetString("LISTINGS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Favorites = FavoritesConfig{Backend: strings.ToLower(v.GetString("FAVORITES_BACKEND"))}

	cfg.Notifications = NotificationsConfig{
		SubscriberBuffer: positiveOr(v.GetInt("NOTIFICATIONS_BUFFER"), 32),
	}

	cfg.Visits = VisitsConfig{
		Workers:    positiveOr(v.GetInt("VISITS_WORKERS"), 2),
		BufferSize: positiveOr(v.GetInt("VISITS_BUFFER"), 256),
		MaxRetries: positiveOr(v.GetInt("VISITS_RETRIES"), 3),
		RetryDelay: parseDuration(v.GetString("VISITS_RETRY_DELAY"), time.Second),
	}

	maxFileSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Dir:              v.GetString("STORAGE_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 24*time.Hour),
		MaxFileSizeBytes: maxFileSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
	}

	cfg.Payments = PaymentsConfig{
		StripeSecretKey:        v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    v.GetString("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:             v.GetString("PAYMENTS_SUCCESS_URL"),
		CancelURL:              v.GetString("PAYMENTS_CANCEL_URL"),
		Currency:               strings.ToLower(v.GetString("PAYMENTS_CURRENCY")),
		PromotionCreditsPerDay: positiveOr(v.GetInt("PROMOTION_CREDITS_PER_DAY"), 1),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "vindel10")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "vindel10")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEARCH_FETCH_FLOOR", 200)
	v.SetDefault("SEARCH_FETCH_MULTIPLIER", 10)
	v.SetDefault("SEARCH_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("SEARCH_MAX_PAGE_SIZE", 100)

	v.SetDefault("LISTINGS_REQUIRE_REVIEW", true)
	v.SetDefault("LISTINGS_TTL", "720h")
	v.SetDefault("LISTINGS_EXPIRY_SWEEP_INTERVAL", "1h")
	v.SetDefault("LISTINGS_CACHE_TTL", "5m")

	v.SetDefault("FAVORITES_BACKEND", FavoritesBackendRedis)
	v.SetDefault("NOTIFICATIONS_BUFFER", 32)

	v.SetDefault("VISITS_WORKERS", 2)
	v.SetDefault("VISITS_BUFFER", 256)
	v.SetDefault("VISITS_RETRIES", 3)
	v.SetDefault("VISITS_RETRY_DELAY", "1s")

	v.SetDefault("STORAGE_DIR", "./media")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_media_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "24h")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp")

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("PAYMENTS_SUCCESS_URL", "http://localhost:3000/plata/succes")
	v.SetDefault("PAYMENTS_CANCEL_URL", "http://localhost:3000/plata/anulat")
	v.SetDefault("PAYMENTS_CURRENCY", "ron")
	v.SetDefault("PROMOTION_CREDITS_PER_DAY", 1)
}

// FetchLimit returns the over-fetch size used for a page of the given size.
func (c SearchConfig) FetchLimit(pageSize int) int {
	floor := positiveOr(c.FetchFloor, 200)
	multiplier := positiveOr(c.FetchMultiplier, 10)
	if n := pageSize * multiplier; n > floor {
		return n
	}
	return floor
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
