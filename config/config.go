// Package config loads dluxgate settings from defaults, an optional YAML
// file, .env files, environment variables and command-line flags (in
// increasing order of precedence).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendGateway = "gateway"
	BackendShell   = "shell"
)

// Config holds the service configuration.
type Config struct {
	Port             int           `mapstructure:"port"`
	HAPI             string        `mapstructure:"hapi"`
	IPFS             string        `mapstructure:"ipfs"`
	IPFSBackend      string        `mapstructure:"ipfs_backend"`
	IPFSAPI          string        `mapstructure:"ipfs_api"`
	Img              string        `mapstructure:"img"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxBundleBytes   int64         `mapstructure:"max_bundle_bytes"`
	Origin           string        `mapstructure:"origin"`
	WalletScript     string        `mapstructure:"wallet_script"`
	EnforceSubdomain bool          `mapstructure:"enforce_subdomain"`
	TrustProxy       bool          `mapstructure:"trust_proxy"`
	LogLevel         string        `mapstructure:"log_level"`
	LogDevelopment   bool          `mapstructure:"log_development"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("hapi", "https://hive-api.dlux.io")
	v.SetDefault("ipfs", "http://127.0.0.1:8080")
	v.SetDefault("ipfs_backend", BackendGateway)
	v.SetDefault("ipfs_api", "http://127.0.0.1:5001")
	v.SetDefault("img", "/img/dlux-icon-192.png")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("max_bundle_bytes", int64(32<<20))
	v.SetDefault("origin", "https://dlux.io")
	v.SetDefault("wallet_script", "https://dlux.io/js/dlux-wallet.js")
	v.SetDefault("enforce_subdomain", true)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
}

// Load reads configuration into a Config. cfgFile may be empty, in which
// case config.yaml is looked up in . and ./config and is optional.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// .env is optional; existing environment variables win.
	_ = godotenv.Load()

	SetDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks endpoint URLs, the storage backend and limits.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for name, raw := range map[string]string{"hapi": c.HAPI, "ipfs": c.IPFS, "origin": c.Origin} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	switch c.IPFSBackend {
	case BackendGateway:
	case BackendShell:
		if err := validateHTTPURL(c.IPFSAPI); err != nil {
			return fmt.Errorf("invalid ipfs_api: %w", err)
		}
	default:
		return fmt.Errorf("unknown ipfs_backend %q (want %q or %q)", c.IPFSBackend, BackendGateway, BackendShell)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxBundleBytes <= 0 {
		return fmt.Errorf("max_bundle_bytes must be positive, got %d", c.MaxBundleBytes)
	}
	if !strings.HasPrefix(c.Img, "/") {
		return fmt.Errorf("img must be a host-relative path, got %q", c.Img)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}
