package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port       int    `toml:"port"`
	BaseURL    string `toml:"base_url"`
	TrustProxy bool   `toml:"trust_proxy"`
}

type BackendConfig struct {
	BaseURL          string `toml:"base_url"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	SearchDebounceMS int    `toml:"search_debounce_ms"`
	SearchWaitSecs   int    `toml:"search_wait_seconds"`
}

type SessionConfig struct {
	Secret        string `toml:"secret"`         // JWT signing secret
	EncryptionKey string `toml:"encryption_key"` // key material for token sealing
	DataDir       string `toml:"data_dir"`
	ExpiryHours   int    `toml:"expiry_hours"`
}

type SSLConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Session SessionConfig `toml:"session"`
	SSL     SSLConfig     `toml:"ssl"`
}

func LoadConfig(filepath string) (*Config, error) {
	var config Config

	// Set default values
	config.Server.Port = 3000
	config.Backend.TimeoutSeconds = 30
	config.Backend.SearchDebounceMS = 250
	config.Backend.SearchWaitSecs = 10
	config.Session.DataDir = "./data"
	config.Session.ExpiryHours = 24

	// Load config file
	_, err := toml.DecodeFile(filepath, &config)
	if err != nil {
		return nil, err
	}

	if config.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend base_url is required")
	}
	if config.Session.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if config.Session.EncryptionKey == "" {
		return nil, fmt.Errorf("session encryption_key is required")
	}

	if config.SSL.Enabled {
		if err := config.ValidateSSL(); err != nil {
			return nil, fmt.Errorf("SSL configuration error: %w", err)
		}
	}

	return &config, nil
}

// BackendTimeout returns the round-trip budget for one backend call.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SearchDebounce is the quiet interval before a typed query fires.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.Backend.SearchDebounceMS) * time.Millisecond
}

// SearchWait is how long a search request may wait for its debounced
// outcome before the handler gives up.
func (c *Config) SearchWait() time.Duration {
	return time.Duration(c.Backend.SearchWaitSecs) * time.Second
}

// SessionExpiry returns the session lifetime.
func (c *Config) SessionExpiry() time.Duration {
	return time.Duration(c.Session.ExpiryHours) * time.Hour
}

// ValidateSSL checks if the SSL configuration is valid
func (c *Config) ValidateSSL() error {
	if !c.SSL.Enabled {
		return nil
	}

	if c.SSL.CertFile == "" {
		return fmt.Errorf("SSL certificate file path is required")
	}

	if c.SSL.KeyFile == "" {
		return fmt.Errorf("SSL key file path is required")
	}

	// Try loading the certificates to verify they're valid
	_, err := tls.LoadX509KeyPair(c.SSL.CertFile, c.SSL.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load SSL certificates: %w", err)
	}

	return nil
}
