package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingMongoURI is returned when MONGODB_URI is not set.
var ErrMissingMongoURI = errors.New("environment variable MONGODB_URI is required")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Uploads   UploadsConfig
	MinIO     MinIOConfig
	Mail      MailConfig
	Admin     AdminConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicURL is the externally reachable backend host used to build upload URLs.
	PublicURL string
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
	// SiteName is the college name used in notification mails.
	SiteName string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type UploadsConfig struct {
	Dir     string
	Backend string // local | minio
	MaxSize int64
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MailConfig struct {
	Host       string
	Port       int
	User       string
	Pass       string
	From       string
	Secure     bool
	AdminEmail string
	Timeout    time.Duration
}

// Enabled reports whether an SMTP transport is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
	Name         string
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
	// application submissions get their own, stricter limiter
	ApplyRPS   float64
	ApplyBurst int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("COLLEGE_NAME", "College of Fisheries")
	v.SetDefault("MONGODB_DATABASE", "fisheries_college")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_BACKEND", "local")
	v.SetDefault("UPLOAD_MAX_MB", 10)
	v.SetDefault("MINIO_BUCKET", "fishcollege")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_TIMEOUT", 15)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_NAME", "Administrator")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_APPLY_RPS", 0.05)
	v.SetDefault("RATE_LIMIT_APPLY_BURST", 3)
	v.SetDefault("LOG_LEVEL", "info")

	uri := strings.TrimSpace(v.GetString("MONGODB_URI"))
	if uri == "" {
		return nil, ErrMissingMongoURI
	}

	publicURL := v.GetString("BACKEND_URL")
	if publicURL == "" {
		publicURL = v.GetString("PUBLIC_BASE_URL")
	}

	from := v.GetString("EMAIL_FROM")
	if from == "" {
		from = v.GetString("EMAIL_USER")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			PublicURL:    strings.TrimRight(publicURL, "/"),
			CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
			SiteName:     v.GetString("COLLEGE_NAME"),
		},
		MongoDB: MongoDBConfig{
			URI:      uri,
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Uploads: UploadsConfig{
			Dir:     v.GetString("UPLOAD_DIR"),
			Backend: strings.ToLower(v.GetString("UPLOAD_BACKEND")),
			MaxSize: v.GetInt64("UPLOAD_MAX_MB") << 20,
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Mail: MailConfig{
			Host:       v.GetString("EMAIL_HOST"),
			Port:       v.GetInt("EMAIL_PORT"),
			User:       v.GetString("EMAIL_USER"),
			Pass:       v.GetString("EMAIL_PASS"),
			From:       from,
			Secure:     v.GetBool("EMAIL_SECURE"),
			AdminEmail: v.GetString("ADMIN_EMAIL"),
			Timeout:    time.Duration(v.GetInt("EMAIL_TIMEOUT")) * time.Second,
		},
		Admin: AdminConfig{
			Username:     v.GetString("ADMIN_USERNAME"),
			Password:     v.GetString("ADMIN_PASSWORD"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
			Name:         v.GetString("ADMIN_NAME"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			ApplyRPS:      v.GetFloat64("RATE_LIMIT_APPLY_RPS"),
			ApplyBurst:    v.GetInt("RATE_LIMIT_APPLY_BURST"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
