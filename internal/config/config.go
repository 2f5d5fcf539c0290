// Package config provides configuration management for the tadoru command.
// It defines the configuration structure, default values and validation.
package config

import (
	"fmt"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/masahif/tadoru/pkg/crawler"
)

// BasicAuth contains HTTP Basic Authentication credentials
type BasicAuth struct {
	Username    string `mapstructure:"username" yaml:"username"`         // Username for basic auth
	Password    string `mapstructure:"password" yaml:"password"`         // Password for basic auth
	UsernameEnv string `mapstructure:"username_env" yaml:"username_env"` // Environment variable for username
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"` // Environment variable for password
}

// Auth contains authentication configuration
type Auth struct {
	Basic       *BasicAuth `mapstructure:"basic" yaml:"basic"`               // Basic authentication settings
	BearerToken string     `mapstructure:"bearer_token" yaml:"bearer_token"` // Bearer token, used when basic auth is unset
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json or text
	File       string `mapstructure:"file" yaml:"file"`               // Optional log file
	MaxSizeMB  int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"` // Rotation threshold
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files to keep
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Crawl boundary
	SeedURL     string        `mapstructure:"seed_url" yaml:"seed_url"`         // Starting URL
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`               // Minimum time between fetches
	ExcludeURLs []string      `mapstructure:"exclude_urls" yaml:"exclude_urls"` // URLs never fetched
	Limit       int           `mapstructure:"limit" yaml:"limit"`               // Stop after N pages, 0 = unlimited

	FollowExternalHosts bool `mapstructure:"follow_external_hosts" yaml:"follow_external_hosts"` // Leave the seed's scheme and host

	// Execution
	Concurrency   int  `mapstructure:"concurrency" yaml:"concurrency"`       // Parallel frontier consumers
	Async         bool `mapstructure:"async" yaml:"async"`                   // Run through CrawlAsync
	RespectRobots bool `mapstructure:"respect_robots" yaml:"respect_robots"` // Layer robots.txt rules on top

	// HTTP
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	Headers        []string      `mapstructure:"headers" yaml:"headers"`                 // "Name: value" pairs
	MaxBodySize    int64         `mapstructure:"max_body_size" yaml:"max_body_size"`     // Bytes read per response
	Auth           *Auth         `mapstructure:"auth" yaml:"auth"`                       // Authentication configuration

	// Database configuration, empty disables recording
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		Delay:          0,
		Limit:          0, // unlimited
		Concurrency:    1,
		RequestTimeout: crawler.DefaultRequestTimeout,
		UserAgent:      crawler.DefaultUserAgent,
		MaxBodySize:    crawler.DefaultMaxBodySize,
		DatabasePath:   "./tadoru.db",
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return ErrNoSeedURL
	}
	if _, err := crawler.ParseSeed(c.SeedURL); err != nil {
		return err
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrNegativeDelay
	}

	if c.Limit < 0 {
		return ErrNegativeLimit
	}

	if _, err := c.ParseHeaders(); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	return nil
}

// ParseHeaders turns the "Name: value" header list into a map keyed by the
// canonical header name.
func (c *CrawlConfig) ParseHeaders() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	for _, h := range c.Headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, h)
		}
		headers[textproto.CanonicalMIMEHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// GetBasicAuthCredentials returns the basic auth username and password,
// resolving environment variables if specified
func (c *CrawlConfig) GetBasicAuthCredentials() (username, password string) {
	if c.Auth == nil || c.Auth.Basic == nil {
		return "", ""
	}

	basic := c.Auth.Basic

	if basic.UsernameEnv != "" {
		username = os.Getenv(basic.UsernameEnv)
	} else {
		username = basic.Username
	}

	if basic.PasswordEnv != "" {
		password = os.Getenv(basic.PasswordEnv)
	} else {
		password = basic.Password
	}

	return username, password
}

// HTTPClientOptions translates the HTTP section into transport options.
func (c *CrawlConfig) HTTPClientOptions() ([]crawler.HTTPClientOption, error) {
	headers, err := c.ParseHeaders()
	if err != nil {
		return nil, err
	}

	opts := []crawler.HTTPClientOption{
		crawler.WithUserAgent(c.UserAgent),
		crawler.WithMaxBodySize(c.MaxBodySize),
		crawler.WithHeaders(headers),
	}
	if username, password := c.GetBasicAuthCredentials(); username != "" {
		opts = append(opts, crawler.WithBasicAuth(username, password))
	} else if c.Auth != nil && c.Auth.BearerToken != "" {
		opts = append(opts, crawler.WithBearerToken(c.Auth.BearerToken))
	}
	return opts, nil
}
