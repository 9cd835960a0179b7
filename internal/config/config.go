// Package config provides YAML-based configuration for the download page server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Pages    PagesConfig    `yaml:"pages"`
	Logging  LoggingConfig  `yaml:"logging"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address"`
	// PublicOrigin overrides the origin used in download and share links.
	PublicOrigin string        `yaml:"public_origin"`
	EnableCORS   bool          `yaml:"enable_cors"`
	AllowOrigins []string      `yaml:"allow_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	BodyLimit    string        `yaml:"body_limit"`
}

// UpstreamConfig describes the LocalSend peer that owns the download sessions.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout of zero leaves the transport defaults in charge.
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	// ProxyAPI forwards /api/localsend/v2/* to the upstream so download links
	// can use the page's own origin.
	ProxyAPI         bool  `yaml:"proxy_api"`
	MaxManifestBytes int64 `yaml:"max_manifest_bytes"`
}

// PagesConfig bounds the in-memory page instances.
type PagesConfig struct {
	MaxPages        int           `yaml:"max_pages"`
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"output_path"`
}

// AdvancedConfig contains tuning options.
type AdvancedConfig struct {
	EnableRequestLogging bool `yaml:"enable_request_logging"`
	EnableMetrics        bool `yaml:"enable_metrics"`
	EnableCompression    bool `yaml:"enable_compression"`
	CompressionLevel     int  `yaml:"compression_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   false,
			AllowOrigins: []string{"*"},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			BodyLimit:    "64K",
		},
		Upstream: UpstreamConfig{
			BaseURL:            "https://127.0.0.1:53317",
			InsecureSkipVerify: true,
			ProxyAPI:           true,
			MaxManifestBytes:   8 << 20,
		},
		Pages: PagesConfig{
			MaxPages:        1000,
			MaxAge:          30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging: true,
			EnableMetrics:        true,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is
// created with the defaults. Environment overrides apply in both cases.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# LocalSend web download page configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if upstream := os.Getenv("UPSTREAM_URL"); upstream != "" {
		c.Upstream.BaseURL = upstream
	}

	if origin := os.Getenv("PUBLIC_ORIGIN"); origin != "" {
		c.Server.PublicOrigin = origin
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks values the server cannot start without.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream base_url: %q", c.Upstream.BaseURL)
	}
	if c.Server.PublicOrigin != "" {
		o, err := url.Parse(c.Server.PublicOrigin)
		if err != nil || o.Scheme == "" || o.Host == "" {
			return fmt.Errorf("invalid server public_origin: %q", c.Server.PublicOrigin)
		}
	}
	if c.Upstream.MaxManifestBytes <= 0 {
		return fmt.Errorf("upstream max_manifest_bytes must be positive")
	}
	if c.Pages.MaxPages <= 0 {
		return fmt.Errorf("pages max_pages must be positive")
	}
	if c.Pages.MaxAge <= 0 || c.Pages.CleanupInterval <= 0 {
		return fmt.Errorf("pages max_age and cleanup_interval must be positive")
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}
