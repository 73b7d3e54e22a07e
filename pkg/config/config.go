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

// Storage drivers understood by the object store factory.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Session  SessionConfig
	Storage  StorageConfig
	Quota    QuotaConfig
	Preview  PreviewConfig
	Uploads  UploadsConfig
	Catalog  CatalogConfig
	Tracking TrackingConfig
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

// JWTConfig holds the verification settings for tokens minted by the auth provider.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig configures the browser-session cookie that scopes saved and hidden sets.
type SessionConfig struct {
	CookieName string
	HashKey    string
	BlockKey   string
	TTL        time.Duration
	Secure     bool
}

// StorageConfig selects and tunes the object storage backend.
type StorageConfig struct {
	Driver         string
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UsePathStyle   bool
	LocalDir       string
	SigningSecret  string
	SignedURLTTL   time.Duration
	PublicBaseURL  string
	LegacyPrefixes []string
}

// QuotaConfig carries the monthly byte ceiling and the policy on lookup failures.
type QuotaConfig struct {
	MonthlyBytes int64
	FailOpen     bool
}

// PreviewConfig tunes renderer selection.
type PreviewConfig struct {
	OfficeViewerURL    string
	ShortFormMaxPages  int
	VisibilityMarginPx int
}

// UploadsConfig bounds accepted uploads.
type UploadsConfig struct {
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// CatalogConfig controls snapshot caching.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// TrackingConfig sizes the fire-and-forget activity channel.
type TrackingConfig struct {
	Workers    int
	BufferSize int
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Session = SessionConfig{
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		HashKey:    v.GetString("SESSION_HASH_KEY"),
		BlockKey:   v.GetString("SESSION_BLOCK_KEY"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		Secure:     v.GetBool("SESSION_SECURE"),
	}

	cfg.Storage = StorageConfig{
		Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Bucket:         v.GetString("STORAGE_BUCKET"),
		Region:         v.GetString("STORAGE_REGION"),
		Endpoint:       v.GetString("STORAGE_ENDPOINT"),
		AccessKey:      v.GetString("STORAGE_ACCESS_KEY"),
		SecretKey:      v.GetString("STORAGE_SECRET_KEY"),
		UsePathStyle:   v.GetBool("STORAGE_USE_PATH_STYLE"),
		LocalDir:       v.GetString("STORAGE_LOCAL_DIR"),
		SigningSecret:  v.GetString("STORAGE_SIGNING_SECRET"),
		SignedURLTTL:   parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), time.Hour),
		PublicBaseURL:  v.GetString("STORAGE_PUBLIC_BASE_URL"),
		LegacyPrefixes: splitAndTrim(v.GetString("STORAGE_LEGACY_PREFIXES")),
	}

	monthly := v.GetInt64("QUOTA_MONTHLY_BYTES")
	if monthly <= 0 {
		monthly = DefaultMonthlyQuotaBytes
	}
	cfg.Quota = QuotaConfig{
		MonthlyBytes: monthly,
		FailOpen:     v.GetBool("QUOTA_FAIL_OPEN"),
	}

	cfg.Preview = PreviewConfig{
		OfficeViewerURL:    v.GetString("PREVIEW_OFFICE_VIEWER_URL"),
		ShortFormMaxPages:  v.GetInt("PREVIEW_SHORT_FORM_MAX_PAGES"),
		VisibilityMarginPx: v.GetInt("PREVIEW_VISIBILITY_MARGIN_PX"),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		MaxFileSizeBytes:  maxUpload,
		AllowedExtensions: splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTENSIONS")),
	}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("ENABLE_CATALOG_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Tracking = TrackingConfig{
		Workers:    v.GetInt("TRACKING_WORKERS"),
		BufferSize: v.GetInt("TRACKING_BUFFER_SIZE"),
	}

	return cfg, nil
}

// DefaultMonthlyQuotaBytes is 0.375 GiB.
const DefaultMonthlyQuotaBytes int64 = 3 * 1024 * 1024 * 1024 / 8

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studyvault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "authenticated")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SESSION_COOKIE_NAME", "studyvault_session")
	v.SetDefault("SESSION_HASH_KEY", "dev_session_hash_key_32_bytes_!!")
	v.SetDefault("SESSION_BLOCK_KEY", "")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_SECURE", false)

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_BUCKET", "documents")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_USE_PATH_STYLE", false)
	v.SetDefault("STORAGE_LOCAL_DIR", "./storage")
	v.SetDefault("STORAGE_SIGNING_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "1h")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("STORAGE_LEGACY_PREFIXES", "public/,uploads/,documents/")

	v.SetDefault("QUOTA_MONTHLY_BYTES", DefaultMonthlyQuotaBytes)
	v.SetDefault("QUOTA_FAIL_OPEN", true)

	v.SetDefault("PREVIEW_OFFICE_VIEWER_URL", "https://view.officeapps.live.com/op/embed.aspx?src=")
	v.SetDefault("PREVIEW_SHORT_FORM_MAX_PAGES", 25)
	v.SetDefault("PREVIEW_VISIBILITY_MARGIN_PX", 200)

	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 50_000_000)
	v.SetDefault("UPLOADS_ALLOWED_EXTENSIONS", ".pdf,.doc,.docx")

	v.SetDefault("ENABLE_CATALOG_CACHE", true)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")

	v.SetDefault("TRACKING_WORKERS", 2)
	v.SetDefault("TRACKING_BUFFER_SIZE", 256)
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
