package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the daemon settings. Everything has a default so the daemon
// runs with no config file at all.
type Config struct {
	ListenAddr       string        `mapstructure:"listen_addr"`
	AdapterAlias     string        `mapstructure:"adapter_alias"`
	ScanWindow       time.Duration `mapstructure:"-"`
	ScanWindowSecs   int           `mapstructure:"scan_window_seconds"`
	LogDir           string        `mapstructure:"log_dir"`
	ConnectivityHost string        `mapstructure:"connectivity_host"`
}

// Load reads /etc/nodenav/nodenav.yaml (or ./nodenav.yaml for development),
// with NODENAV_* environment variables taking precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("nodenav")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/nodenav")
	v.AddConfigPath(".")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("adapter_alias", "NodeNav")
	v.SetDefault("scan_window_seconds", 30)
	v.SetDefault("log_dir", "/var/nodenav")
	v.SetDefault("connectivity_host", "1.1.1.1")

	v.SetEnvPrefix("NODENAV")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ScanWindowSecs <= 0 {
		cfg.ScanWindowSecs = 30
	}
	cfg.ScanWindow = time.Duration(cfg.ScanWindowSecs) * time.Second
	return &cfg, nil
}
