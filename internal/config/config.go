// Package config loads settings from an optional yaml file and SIGINT_*
// environment variables, with working defaults for a single-host deployment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"ssl_mode"`
	} `mapstructure:"db"`

	Redis struct {
		Addr        string        `mapstructure:"addr"`
		PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	} `mapstructure:"redis"`

	MQTT struct {
		BrokerURL string `mapstructure:"broker_url"`
		Topic     string `mapstructure:"topic"`
	} `mapstructure:"mqtt"`

	Scan struct {
		Interval         time.Duration `mapstructure:"interval"`
		WifiCommand      []string      `mapstructure:"wifi_command"`
		WifiTimeout      time.Duration `mapstructure:"wifi_timeout"`
		BluetoothCommand []string      `mapstructure:"bluetooth_command"`
		BluetoothTimeout time.Duration `mapstructure:"bluetooth_timeout"`
	} `mapstructure:"scan"`

	SessionGap   time.Duration `mapstructure:"session_gap"`
	OfflineAfter time.Duration `mapstructure:"offline_after"`
}

// Load reads the optional config file, then environment overrides. Every key
// maps to an env var with the SIGINT_ prefix, dots becoming underscores
// (db.host -> SIGINT_DB_HOST).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SIGINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "sigint")
	v.SetDefault("db.password", "sigint")
	v.SetDefault("db.name", "sigint")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.presence_ttl", time.Hour)
	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.topic", "sigint/observations")
	v.SetDefault("scan.interval", 15*time.Minute)
	v.SetDefault("scan.wifi_command", []string{"scripts/wifi.py"})
	v.SetDefault("scan.wifi_timeout", 60*time.Second)
	v.SetDefault("scan.bluetooth_command", []string{"scripts/bluetooth.py"})
	v.SetDefault("scan.bluetooth_timeout", 120*time.Second)
	v.SetDefault("session_gap", 30*time.Minute)
	v.SetDefault("offline_after", time.Hour)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
