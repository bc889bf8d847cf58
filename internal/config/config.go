package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	RateLimit    RateLimitConfig    `yaml:"ratelimit"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr     string    `yaml:"listen_addr"`
	AllowedOrigins []string  `yaml:"allowed_origins"`
	TLS            TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool       `yaml:"enabled"`
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig replaces cert_file/key_file with Let's Encrypt certificates.
// HTTPAddr serves the HTTP-01 challenge.
type ACMEConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Email    string   `yaml:"email"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
	HTTPAddr string   `yaml:"http_addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AllowSignup   bool          `yaml:"allow_signup"`
	OIDC          OIDCConfig    `yaml:"oidc"`
}

type OIDCConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Provider      string   `yaml:"provider"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	IssuerURL     string   `yaml:"issuer_url"`
	RedirectURL   string   `yaml:"redirect_url"`
	Scopes        []string `yaml:"scopes"`
	AllowedGroups []string `yaml:"allowed_groups"`
}

// RateLimitConfig bounds login attempts per client IP and writes per user.
// Zero disables the corresponding limit.
type RateLimitConfig struct {
	Path          string        `yaml:"path"`
	LoginPerHour  int           `yaml:"login_per_hour"`
	WritesPerHour int           `yaml:"writes_per_hour"`
	WritesPerDay  int           `yaml:"writes_per_day"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"`
	Path       string   `yaml:"path"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

type HousekeepingConfig struct {
	Schedule string `yaml:"schedule"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv lets secrets and deployment paths come from the environment
// (or a .env file loaded by the CLI) instead of the YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("KANDID_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("KANDID_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("KANDID_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("KANDID_SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("KANDID_OIDC_CLIENT_SECRET"); v != "" {
		cfg.Auth.OIDC.ClientSecret = v
	}
	if v := os.Getenv("KANDID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.TLS.ACME.CacheDir == "" {
		cfg.Server.TLS.ACME.CacheDir = "/var/lib/kandid/certs"
	}
	if cfg.Server.TLS.ACME.HTTPAddr == "" {
		cfg.Server.TLS.ACME.HTTPAddr = ":80"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/kandid/kandid.db"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if len(cfg.Auth.OIDC.Scopes) == 0 {
		cfg.Auth.OIDC.Scopes = []string{"openid", "profile", "email"}
	}
	if cfg.RateLimit.Path == "" {
		cfg.RateLimit.Path = "/var/lib/kandid/ratelimit.db"
	}
	if cfg.RateLimit.FlushInterval == 0 {
		cfg.RateLimit.FlushInterval = 10 * time.Second
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Housekeeping.Schedule == "" {
		cfg.Housekeeping.Schedule = "@every 15m"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.session_secret is required")
	}
	if len(cfg.Auth.SessionSecret) < 32 {
		return fmt.Errorf("auth.session_secret must be at least 32 characters")
	}
	if tls := cfg.Server.TLS; tls.Enabled {
		if tls.ACME.Enabled {
			if len(tls.ACME.Domains) == 0 {
				return fmt.Errorf("server.tls.acme.domains is required when ACME is enabled")
			}
		} else if tls.CertFile == "" || tls.KeyFile == "" {
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
	}
	if cfg.Auth.OIDC.Enabled {
		if cfg.Auth.OIDC.ClientID == "" {
			return fmt.Errorf("auth.oidc.client_id is required when OIDC is enabled")
		}
		if cfg.Auth.OIDC.ClientSecret == "" {
			return fmt.Errorf("auth.oidc.client_secret is required when OIDC is enabled")
		}
		if cfg.Auth.OIDC.IssuerURL == "" {
			return fmt.Errorf("auth.oidc.issuer_url is required when OIDC is enabled")
		}
	}
	if cfg.RateLimit.LoginPerHour < 0 || cfg.RateLimit.WritesPerHour < 0 || cfg.RateLimit.WritesPerDay < 0 {
		return fmt.Errorf("ratelimit values must not be negative")
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}
	return nil
}
