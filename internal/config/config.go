package config

import (
	"errors"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const insecureDefaultJWTSecret = "change-me-listing-service-secret"

// Config holds all configuration for the service.
type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	GRPCPort    string `mapstructure:"GRPC_PORT"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RedisAddress  string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"`

	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	MapboxToken      string        `mapstructure:"MAPBOX_TOKEN"`
	MapboxBaseURL    string        `mapstructure:"MAPBOX_BASE_URL"`
	GeocodingTimeout time.Duration `mapstructure:"GEOCODING_TIMEOUT"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	JWTSecret              string `mapstructure:"JWT_SECRET"`
	PrometheusMetricsPort  string `mapstructure:"PROMETHEUS_METRICS_PORT"`
	OTExporterOTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var defaults = map[string]any{
	"SERVICE_NAME":                "listing-service",
	"HTTP_PORT":                   "8080",
	"GRPC_PORT":                   "50052",
	"MONGO_URI":                   "mongodb://localhost:27017",
	"MONGO_DATABASE":              "wanderlust",
	"REDIS_ADDRESS":               "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"CACHE_TTL":                   "10m",
	"NATS_URL":                    "nats://localhost:4222",
	"MINIO_ENDPOINT":              "localhost:9000",
	"MINIO_ACCESS_KEY":            "minioadmin",
	"MINIO_SECRET_KEY":            "minioadmin",
	"MINIO_BUCKET":                "listing-images",
	"MINIO_USE_SSL":               false,
	"MAPBOX_TOKEN":                "",
	"MAPBOX_BASE_URL":             "https://api.mapbox.com",
	"GEOCODING_TIMEOUT":           "5s",
	"SMTP_HOST":                   "",
	"SMTP_PORT":                   587,
	"SMTP_USERNAME":               "",
	"SMTP_PASSWORD":               "",
	"SMTP_FROM":                   "",
	"JWT_SECRET":                  insecureDefaultJWTSecret,
	"PROMETHEUS_METRICS_PORT":     "9092",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
}

// LoadConfig reads configuration from environment variables on top of defaults.
// The .env file, if any, is loaded by main before this is called.
func LoadConfig(appLogger *logger.Logger) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		appLogger.Error("Failed to unmarshal configuration", zap.Error(err))
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == insecureDefaultJWTSecret {
		appLogger.Warn("JWT_SECRET is set to its default insecure value")
	}
	if cfg.MapboxToken == "" {
		appLogger.Warn("MAPBOX_TOKEN is empty, every geocoding call will fail")
	}

	appLogger.Debug("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.String("mongo_database", cfg.MongoDatabase),
		zap.String("redis_address", cfg.RedisAddress),
		zap.String("nats_url", cfg.NATSURL),
		zap.String("minio_bucket", cfg.MinIOBucket),
		zap.Bool("smtp_enabled", cfg.SMTPHost != ""),
		zap.String("prometheus_port", cfg.PrometheusMetricsPort),
		zap.String("otel_endpoint", cfg.OTExporterOTLPEndpoint),
	)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.MongoURI == "":
		return errors.New("MONGO_URI is required")
	case c.MongoDatabase == "":
		return errors.New("MONGO_DATABASE is required")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case c.HTTPPort == "":
		return errors.New("HTTP_PORT is required")
	case c.GeocodingTimeout <= 0:
		return errors.New("GEOCODING_TIMEOUT must be positive")
	}
	return nil
}
