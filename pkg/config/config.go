// Package config provides configuration management for the mirkv server
// and client components.
//
// Configuration sources apply in the following order, each overriding the
// last:
//  1. Default values
//  2. An optional ".env" file loaded via LoadDotEnv
//  3. "MIRKV_*" environment variables
//  4. Command-line flags (bound directly onto these structs by cmd/mirkvd
//     and cmd/mirkv-cli, so a flag always wins when the user passes one)
//
// Example server usage:
//
//	config.LoadDotEnv()
//	cfg := config.NewServerConfig()
//	cfg.ApplyEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default server configuration constants.
const (
	DefaultServerPort       = 6379
	DefaultMetricsPort      = 9121
	DefaultReadTimeoutSecs  = 30
	DefaultWriteTimeoutSecs = 10
)

// Default client configuration constants.
const (
	DefaultConnTimeoutSecs = 5
	DefaultRetryAttempts   = 3
)

// ServerConfig holds all configuration options for a mirkvd instance: the
// TCP listener, the metrics HTTP endpoint, and logging.
type ServerConfig struct {
	Host         string // Host address to bind to (default: "0.0.0.0")
	LogLevel     string // Log level: debug, info, warn, error (default: "info")
	Port         int    // TCP port to listen on
	MetricsPort  int    // Port the Prometheus /metrics endpoint binds to
	ReadTimeout  int    // Read timeout in seconds; validated, but not passed to internal/server, which uses a fixed 30s read deadline
	WriteTimeout int    // Write timeout in seconds; validated, but not passed to internal/server, which uses a fixed 10s write deadline
}

// ClientConfig holds all configuration options for a mirkv client
// instance: the server endpoint, pooling, and retry policy.
type ClientConfig struct {
	Addr          string // Server address, host:port
	ConnTimeout   int    // Connection timeout in seconds
	ReadTimeout   int    // Read timeout in seconds
	WriteTimeout  int    // Write timeout in seconds
	RetryAttempts int    // Number of retry attempts on a transient error
}

// LoadDotEnv loads a ".env" file from the working directory into the
// process environment, if one exists. A missing file is not an error;
// any other read failure is returned so callers can decide whether to
// treat it as fatal.
func LoadDotEnv() error {
	err := godotenv.Load()
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// NewServerConfig returns a ServerConfig populated with defaults.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         DefaultServerPort,
		MetricsPort:  DefaultMetricsPort,
		ReadTimeout:  DefaultReadTimeoutSecs,
		WriteTimeout: DefaultWriteTimeoutSecs,
		LogLevel:     "info",
	}
}

// ApplyEnv overlays "MIRKV_*" environment variables onto c, leaving any
// field untouched if its variable is unset or fails to parse.
func (c *ServerConfig) ApplyEnv() {
	if v := os.Getenv("MIRKV_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("MIRKV_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("MIRKV_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.MetricsPort = p
		}
	}
	if v := os.Getenv("MIRKV_READ_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			c.ReadTimeout = t
		}
	}
	if v := os.Getenv("MIRKV_WRITE_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			c.WriteTimeout = t
		}
	}
	if v := os.Getenv("MIRKV_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Address returns the "host:port" string the TCP listener binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddress returns the "host:port" string the metrics HTTP server
// binds to.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Validate checks that c contains valid values.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.ReadTimeout < 1 {
		return fmt.Errorf("read timeout must be positive: %d", c.ReadTimeout)
	}
	if c.WriteTimeout < 1 {
		return fmt.Errorf("write timeout must be positive: %d", c.WriteTimeout)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// NewClientConfig returns a ClientConfig populated with defaults.
func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		Addr:          fmt.Sprintf("localhost:%d", DefaultServerPort),
		ConnTimeout:   DefaultConnTimeoutSecs,
		ReadTimeout:   DefaultReadTimeoutSecs,
		WriteTimeout:  DefaultWriteTimeoutSecs,
		RetryAttempts: DefaultRetryAttempts,
	}
}

// ApplyEnv overlays "MIRKV_*" environment variables onto c.
func (c *ClientConfig) ApplyEnv() {
	if v := os.Getenv("MIRKV_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("MIRKV_CONN_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			c.ConnTimeout = t
		}
	}
	if v := os.Getenv("MIRKV_READ_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			c.ReadTimeout = t
		}
	}
	if v := os.Getenv("MIRKV_WRITE_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			c.WriteTimeout = t
		}
	}
	if v := os.Getenv("MIRKV_RETRY_ATTEMPTS"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			c.RetryAttempts = r
		}
	}
}

// Validate checks that c contains valid values.
func (c *ClientConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server address must be specified")
	}
	if c.ConnTimeout < 1 {
		return fmt.Errorf("connection timeout must be positive: %d", c.ConnTimeout)
	}
	if c.ReadTimeout < 1 {
		return fmt.Errorf("read timeout must be positive: %d", c.ReadTimeout)
	}
	if c.WriteTimeout < 1 {
		return fmt.Errorf("write timeout must be positive: %d", c.WriteTimeout)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must be non-negative: %d", c.RetryAttempts)
	}
	return nil
}
