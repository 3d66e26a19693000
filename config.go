package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr  string `json:"listen_addr" yaml:"listen_addr"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
	AdminAddr   string `json:"admin_addr" yaml:"admin_addr"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	RateLimit    float64  `json:"rate_limit" yaml:"rate_limit"`
	RateBurst    int      `json:"rate_burst" yaml:"rate_burst"`
	MaxConnPerIP int      `json:"max_conn_per_ip" yaml:"max_conn_per_ip"`
	Blocklist    []string `json:"blocklist" yaml:"blocklist"`

	GeoIPDBPath   string `json:"geoip_db_path" yaml:"geoip_db_path"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	WebhookURL    string `json:"webhook_url" yaml:"webhook_url"`
}

const envPrefix = "HTMXDEMO_"

// LoadConfig reads path (JSON, or YAML for .yaml/.yml), applies HTMXDEMO_*
// environment overrides and fills in defaults. A missing file is not an
// error; an empty path skips the file entirely.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := decodeConfig(path, b, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func decodeConfig(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.ListenAddr)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("ADMIN_ADDR", &c.AdminAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("GEOIP_DB", &c.GeoIPDBPath)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("WEBHOOK_URL", &c.WebhookURL)

	if v, ok := lookup(envPrefix + "BLOCKLIST"); ok && v != "" {
		c.Blocklist = strings.Split(v, ",")
	}
	if v, ok := lookup(envPrefix + "RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT: %w", envPrefix, err)
		}
		c.RateLimit = f
	}
	for name, dst := range map[string]*int{
		"RATE_BURST":      &c.RateBurst,
		"MAX_CONN_PER_IP": &c.MaxConnPerIP,
	} {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = n
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "0.0.0.0:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = int(c.RateLimit) + 1
	}
}
