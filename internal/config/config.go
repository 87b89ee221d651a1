// Package config loads application configuration from environment
// variables with sensible development defaults.
package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration for the console and the
// interaction controller. Both binaries read the same environment.
type Config struct {
	Host    string
	Port    string
	BotPort string
	Env     string // "development" or "production"

	DataFile  string // catalog document path, shared by both processes
	UploadDir string // local media directory when S3 is unconfigured

	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	AdminPassword   string
	AdminTOTPSecret string // empty disables the 2FA step

	GatewayURL        string // chat platform REST base URL, empty disables publishing
	GatewayToken      string
	InteractionsToken string // bearer token the platform relay must present

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

// Load reads configuration from the environment. In production it
// refuses to start with the default admin password or without a gateway
// token when a gateway is configured.
func Load() (*Config, error) {
	cfg := &Config{
		Host:    envOrDefault("APP_HOST", "0.0.0.0"),
		Port:    envOrDefault("APP_PORT", "8080"),
		BotPort: envOrDefault("BOT_PORT", "8081"),
		Env:     envOrDefault("APP_ENV", "development"),

		DataFile:  envOrDefault("DATA_FILE", "data/inventory.json"),
		UploadDir: envOrDefault("UPLOAD_DIR", "static/uploads"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AdminPassword:   envOrDefault("ADMIN_PASSWORD", "change-me"),
		AdminTOTPSecret: os.Getenv("ADMIN_TOTP_SECRET"),

		GatewayURL:        os.Getenv("GATEWAY_URL"),
		GatewayToken:      os.Getenv("GATEWAY_TOKEN"),
		InteractionsToken: os.Getenv("INTERACTIONS_TOKEN"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	if !cfg.IsDev() {
		if cfg.AdminPassword == "change-me" {
			return nil, fmt.Errorf("ADMIN_PASSWORD must be set in production")
		}
		if cfg.GatewayURL != "" && cfg.GatewayToken == "" {
			return nil, fmt.Errorf("GATEWAY_TOKEN must be set when GATEWAY_URL is configured in production")
		}
	}

	return cfg, nil
}

// Addr returns the console listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// BotAddr returns the interaction controller listen address.
func (c *Config) BotAddr() string {
	return c.Host + ":" + c.BotPort
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env != "production"
}

// S3Configured reports whether media uploads should go to S3 rather than
// the local upload directory.
func (c *Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
