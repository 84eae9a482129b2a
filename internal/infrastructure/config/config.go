package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	Log        LogConfig
	Session    SessionConfig
	RegionCN   RegionCNConfig
	RegionINTL RegionINTLConfig
	Proxy      ProxyConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SessionConfig holds admin session token settings
type SessionConfig struct {
	Secret     string
	Issuer     string
	CookieName string
	Expiration time.Duration
}

// RegionCNConfig holds the CN document-store credentials.
// All three of Addr, SecretID and SecretKey must be set for the
// region to count as directly reachable.
type RegionCNConfig struct {
	Addr      string
	SecretID  string
	SecretKey string
	DB        int
}

// RegionINTLConfig holds the INTL relational + object store credentials.
type RegionINTLConfig struct {
	DatabaseURL string
	ServiceKey  string
	Storage     StorageConfig
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// ProxyConfig holds sibling-deployment proxy settings.
// An origin plus the shared secret makes the matching region proxyable.
type ProxyConfig struct {
	CNOrigin     string
	INTLOrigin   string
	SharedSecret string
	Timeout      time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with NICEPICK_ prefix (e.g., NICEPICK_REGION_INTL_DATABASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("NICEPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Session: SessionConfig{
			Secret:     v.GetString("session.secret"),
			Issuer:     v.GetString("session.issuer"),
			CookieName: v.GetString("session.cookie_name"),
			Expiration: v.GetDuration("session.expiration"),
		},
		RegionCN: RegionCNConfig{
			Addr:      v.GetString("region_cn.addr"),
			SecretID:  v.GetString("region_cn.secret_id"),
			SecretKey: v.GetString("region_cn.secret_key"),
			DB:        v.GetInt("region_cn.db"),
		},
		RegionINTL: RegionINTLConfig{
			DatabaseURL: v.GetString("region_intl.database_url"),
			ServiceKey:  v.GetString("region_intl.service_key"),
			Storage: StorageConfig{
				Endpoint:          v.GetString("region_intl.storage.endpoint"),
				Region:            v.GetString("region_intl.storage.region"),
				Bucket:            v.GetString("region_intl.storage.bucket"),
				AccessKey:         v.GetString("region_intl.storage.access_key"),
				SecretKey:         v.GetString("region_intl.storage.secret_key"),
				UseSSL:            v.GetBool("region_intl.storage.use_ssl"),
				UsePathStyle:      v.GetBool("region_intl.storage.use_path_style"),
				PresignExpiration: v.GetDuration("region_intl.storage.presign_expiration"),
			},
		},
		Proxy: ProxyConfig{
			CNOrigin:     v.GetString("proxy.cn_origin"),
			INTLOrigin:   v.GetString("proxy.intl_origin"),
			SharedSecret: v.GetString("proxy.shared_secret"),
			Timeout:      v.GetDuration("proxy.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "nicepick-admin"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "nicepick-admin"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "nicepick_session"
	}
	if cfg.Session.Expiration == 0 {
		cfg.Session.Expiration = 12 * time.Hour
	}
	if cfg.Proxy.Timeout == 0 {
		cfg.Proxy.Timeout = 15 * time.Second
	}
	if cfg.RegionINTL.Storage.Region == "" {
		cfg.RegionINTL.Storage.Region = "us-east-1"
	}
	if cfg.RegionINTL.Storage.PresignExpiration == 0 {
		cfg.RegionINTL.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "nicepick-admin"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.App.Env == "production" {
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required in production")
		}
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("session.secret must be at least 32 characters in production")
		}
		// A deployment with a sibling origin but no shared secret would
		// silently lose its proxy fallback; reject it up front.
		if (c.Proxy.CNOrigin != "" || c.Proxy.INTLOrigin != "") && c.Proxy.SharedSecret == "" {
			return fmt.Errorf("proxy.shared_secret is required when a proxy origin is configured")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}
