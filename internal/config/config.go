package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "./configs/server.yaml"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Screeps ScreepsConfig `yaml:"screeps"`
	Render  RenderConfig  `yaml:"render"`
	Index   IndexConfig   `yaml:"index"`
	Audit   AuditConfig   `yaml:"audit"`
	Mirror  MirrorConfig  `yaml:"mirror"`
}

type ServerConfig struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`
}

type ScreepsConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	// RequestTimeoutMS bounds each upstream call made during one aggregation; 0 disables it.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
	HTTPTimeoutMS    int `yaml:"http_timeout_ms"`
}

type RenderConfig struct {
	Gap         int    `yaml:"gap"`
	Background  string `yaml:"background"`
	HeaderColor string `yaml:"header_color"`
	FooterColor string `yaml:"footer_color"`
}

type IndexConfig struct {
	// Backend is "sqlite" or "none".
	Backend string `yaml:"backend"`
}

type AuditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RotateLayout string `yaml:"rotate_layout"`
}

type MirrorConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	Workers         int    `yaml:"workers"`
	QueueCapacity   int    `yaml:"queue_capacity"`
	EnqueueWaitMS   int    `yaml:"enqueue_wait_ms"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen:  "0.0.0.0:3000",
			DataDir: "data",
		},
		Screeps: ScreepsConfig{
			BaseURL:          "https://screeps.com",
			RequestTimeoutMS: 15000,
			HTTPTimeoutMS:    30000,
		},
		Render: RenderConfig{
			Gap:         100,
			Background:  "#2b2b2b",
			HeaderColor: "#ffffff",
			FooterColor: "#888",
		},
		Index: IndexConfig{Backend: "sqlite"},
		Audit: AuditConfig{Enabled: true, RotateLayout: "2006-01-02-15"},
		Mirror: MirrorConfig{
			Workers:       2,
			QueueCapacity: 256,
			EnqueueWaitMS: 25,
		},
	}
}

// Load reads path over Defaults and then applies env overrides. A missing file is not an
// error when path is the default location.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("%s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		default:
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if v := get("PORT"); v != "" {
		c.Server.Listen = "0.0.0.0:" + v
	}
	if v := get("DATA_DIR"); v != "" {
		c.Server.DataDir = v
	}
	if v := get("SCREEPS_BASE_URL"); v != "" {
		c.Screeps.BaseURL = v
	}
	if v := get("SCREEPS_TOKEN"); v != "" {
		c.Screeps.Token = v
	}
	c.Screeps.RequestTimeoutMS = envInt(get, "SCREEPS_REQUEST_TIMEOUT_MS", c.Screeps.RequestTimeoutMS)
	if v := get("RES_INDEX_BACKEND"); v != "" {
		c.Index.Backend = v
	}
	c.Audit.Enabled = envBool(get, "RES_AUDIT_LOG", c.Audit.Enabled)

	c.Mirror.Enabled = envBool(get, "RES_R2_MIRROR", c.Mirror.Enabled)
	if v := get("RES_R2_ENDPOINT"); v != "" {
		c.Mirror.Endpoint = v
	}
	if v := get("RES_R2_BUCKET"); v != "" {
		c.Mirror.Bucket = v
	}
	if v := get("RES_R2_ACCESS_KEY_ID"); v != "" {
		c.Mirror.AccessKeyID = v
	}
	if v := get("RES_R2_SECRET_ACCESS_KEY"); v != "" {
		c.Mirror.SecretAccessKey = v
	}
	if v := get("RES_R2_PREFIX"); v != "" {
		c.Mirror.Prefix = v
	}
	c.Mirror.Workers = envInt(get, "RES_R2_UPLOAD_WORKERS", c.Mirror.Workers)
}

func (c *Config) Normalize() {
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	if c.Index.Backend == "" {
		c.Index.Backend = "sqlite"
	}
	if c.Audit.RotateLayout == "" {
		c.Audit.RotateLayout = "2006-01-02-15"
	}
	c.Screeps.BaseURL = strings.TrimRight(strings.TrimSpace(c.Screeps.BaseURL), "/")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}
	if strings.TrimSpace(c.Server.DataDir) == "" {
		return fmt.Errorf("server.data_dir is required")
	}
	if c.Screeps.BaseURL == "" {
		return fmt.Errorf("screeps.base_url is required")
	}
	if c.Screeps.RequestTimeoutMS < 0 {
		return fmt.Errorf("screeps.request_timeout_ms must be >= 0, got %d", c.Screeps.RequestTimeoutMS)
	}
	if c.Screeps.HTTPTimeoutMS < 0 {
		return fmt.Errorf("screeps.http_timeout_ms must be >= 0, got %d", c.Screeps.HTTPTimeoutMS)
	}
	if c.Render.Gap <= 0 {
		return fmt.Errorf("render.gap must be > 0, got %d", c.Render.Gap)
	}
	switch c.Index.Backend {
	case "sqlite", "none":
	default:
		return fmt.Errorf("unsupported index.backend: %s", c.Index.Backend)
	}
	if c.Mirror.Enabled {
		if c.Mirror.Endpoint == "" || c.Mirror.Bucket == "" || c.Mirror.AccessKeyID == "" || c.Mirror.SecretAccessKey == "" {
			return fmt.Errorf("mirror enabled but endpoint/bucket/access_key_id/secret_access_key are not fully set")
		}
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Screeps.RequestTimeoutMS) * time.Millisecond
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Screeps.HTTPTimeoutMS) * time.Millisecond
}

func envBool(get func(string) string, key string, def bool) bool {
	v := get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(get func(string) string, key string, def int) int {
	v := get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
