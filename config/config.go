package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application-wide configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LIFF      LIFFConfig      `mapstructure:"liff"`
	LINE      LINEConfig      `mapstructure:"line"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP server
type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	BaseURL     string     `mapstructure:"base_url"`
	BodyLimitMB int64      `mapstructure:"body_limit_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin settings
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL holding the reference location table
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// MongoConfig delivery record store
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RedisConfig rate limiter backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LIFFConfig LINE Login channel used by the LIFF app
type LIFFConfig struct {
	ChannelID     string `mapstructure:"channel_id"`
	ChannelSecret string `mapstructure:"channel_secret"`
	ConfirmURL    string `mapstructure:"confirm_url"`
	// JWKSURL serves the ES256 keys for tokens from liff.getIDToken
	JWKSURL string `mapstructure:"jwks_url"`
}

// LINEConfig Messaging API channel used for server-side push
type LINEConfig struct {
	ChannelSecret      string `mapstructure:"channel_secret"`
	ChannelAccessToken string `mapstructure:"channel_access_token"`
}

// UploadConfig slip upload backend
type UploadConfig struct {
	Provider  string           `mapstructure:"provider"` // http | gcs | none
	MaxSizeMB int64            `mapstructure:"max_size_mb"`
	HTTP      HTTPUploadConfig `mapstructure:"http"`
	GCS       GCSUploadConfig  `mapstructure:"gcs"`
}

// HTTPUploadConfig external image upload service
type HTTPUploadConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GCSUploadConfig Google Cloud Storage bucket
type GCSUploadConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// KafkaConfig delivery event stream
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// DeliveryConfig record policy
type DeliveryConfig struct {
	RequireSlipForHome bool   `mapstructure:"require_slip_for_home"`
	VerifyAddress      bool   `mapstructure:"verify_address"`
	StorePickupLabel   string `mapstructure:"store_pickup_label"`
	Timezone           string `mapstructure:"timezone"`
}

// AdminConfig staff endpoints
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig limits on record creation
type RateLimitConfig struct {
	CreateLimit  int           `mapstructure:"create_limit"`
	CreateWindow time.Duration `mapstructure:"create_window"`
}

// LogConfig logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Service is stamped on every entry so shared log sinks can filter
	Service string `mapstructure:"service"`
}

// Load reads configuration from .env, the config file and the environment.
// Precedence: environment > config file > defaults.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables still win
	_ = godotenv.Load()

	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_mb", 12)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "item_delivery")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Bangkok")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "item_delivery")
	v.SetDefault("mongo.collection", "item_delivery")
	v.SetDefault("mongo.timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("liff.confirm_url", "")
	v.SetDefault("liff.jwks_url", "https://api.line.me/oauth2/v2.1/certs")

	v.SetDefault("upload.provider", "none")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.http.timeout", "30s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "item-delivery.events")

	v.SetDefault("delivery.require_slip_for_home", false)
	v.SetDefault("delivery.verify_address", true)
	v.SetDefault("delivery.store_pickup_label", "ร้าน OK Mobile")
	v.SetDefault("delivery.timezone", "Asia/Bangkok")

	v.SetDefault("rate_limit.create_limit", 10)
	v.SetDefault("rate_limit.create_window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.service", "register-item-delivery")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("DELIVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the process cannot start without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("invalid config: mongo.uri must not be empty")
	}
	if c.Mongo.Database == "" || c.Mongo.Collection == "" {
		return fmt.Errorf("invalid config: mongo.database and mongo.collection must not be empty")
	}

	switch c.Upload.Provider {
	case "none", "":
	case "http":
		if c.Upload.HTTP.URL == "" {
			return fmt.Errorf("invalid config: upload.http.url is required for the http provider")
		}
	case "gcs":
		if c.Upload.GCS.Bucket == "" {
			return fmt.Errorf("invalid config: upload.gcs.bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("invalid config: unknown upload.provider %q", c.Upload.Provider)
	}

	if c.LINE.ChannelAccessToken != "" && c.LINE.ChannelSecret == "" {
		return fmt.Errorf("invalid config: line.channel_secret is required with line.channel_access_token")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("invalid config: kafka.brokers is required when kafka is enabled")
	}
	return nil
}
