// Package config provides Viper-based configuration for readhubx.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bryan-buckman/readhubx/internal/proxy"
)

// EnvPrefix is prepended to every environment variable, e.g. READHUBX_ADDR.
const EnvPrefix = "READHUBX"

// Config is the complete readhubx configuration.
type Config struct {
	// Addr is the listen address of the serve command.
	Addr string `mapstructure:"addr"`
	// DB is an SQLite path or a postgres:// DSN.
	DB string `mapstructure:"db"`
	// Upstream is the ReadHub API origin the proxy forwards to.
	Upstream string `mapstructure:"upstream"`
	// APIBase is the API root used by the CLI client. It normally points
	// at a running proxy.
	APIBase string `mapstructure:"api_base"`
	// PublicURL is the externally visible server URL for feed links.
	PublicURL string `mapstructure:"public_url"`

	ExposeUpstreamErrors bool          `mapstructure:"expose_upstream_errors"`
	UpstreamTimeout      time.Duration `mapstructure:"upstream_timeout"`
	UpstreamRPS          float64       `mapstructure:"upstream_rps"`
	UpstreamBurst        int           `mapstructure:"upstream_burst"`

	// Color enables colored CLI output. NO_COLOR still wins.
	Color bool `mapstructure:"color"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "data/readhubx.db")
	v.SetDefault("upstream", proxy.DefaultOrigin)
	v.SetDefault("api_base", "http://localhost:8080/api")
	v.SetDefault("public_url", "")
	v.SetDefault("expose_upstream_errors", true)
	v.SetDefault("upstream_timeout", 15*time.Second)
	v.SetDefault("upstream_rps", 10.0)
	v.SetDefault("upstream_burst", 20)
	v.SetDefault("color", true)
}

// New returns a viper instance with defaults and environment binding. An
// empty cfgFile searches for readhubx.yaml in the working directory and
// $HOME/.config/readhubx.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("readhubx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/readhubx")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the optional config file and decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB == "" {
		return fmt.Errorf("db must not be empty")
	}
	for name, raw := range map[string]string{"upstream": cfg.Upstream, "api_base": cfg.APIBase} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s url: %q", name, raw)
		}
	}
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout must be positive, got %s", cfg.UpstreamTimeout)
	}
	if cfg.UpstreamRPS < 0 {
		return fmt.Errorf("upstream_rps must not be negative")
	}
	return nil
}

// ProxyConfig derives the proxy settings.
func (c *Config) ProxyConfig() proxy.Config {
	pc := proxy.DefaultConfig()
	pc.Origin = c.Upstream
	pc.ExposeUpstreamErrors = c.ExposeUpstreamErrors
	pc.Timeout = c.UpstreamTimeout
	pc.RPS = c.UpstreamRPS
	pc.Burst = c.UpstreamBurst
	return pc
}
