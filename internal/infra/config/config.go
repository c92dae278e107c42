// Package config provides process-wide configuration loaded once from env vars.
// Credentials are required; everything else has a safe default.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/metricool"
)

// Transports accepted by MCP_TRANSPORT.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

var (
	ErrMissingToken     = errors.New("METRICOOL_USER_TOKEN is required")
	ErrMissingUserID    = errors.New("METRICOOL_USER_ID is required")
	ErrInvalidUserID    = errors.New("METRICOOL_USER_ID must be numeric")
	ErrInvalidTransport = errors.New("MCP_TRANSPORT must be stdio or http")
	ErrInvalidRateLimit = errors.New("METRICOOL_RATE_LIMIT must be a non-negative integer")
)

// Config holds runtime configuration for the server.
type Config struct {
	// Metricool
	UserToken string // METRICOOL_USER_TOKEN, required
	UserID    string // METRICOOL_USER_ID, required
	BaseURL   string // METRICOOL_BASE_URL, default "https://app.metricool.com/api"
	RateLimit int    // METRICOOL_RATE_LIMIT, requests per minute; 0 disables

	// MCP transport
	Transport string // MCP_TRANSPORT, default "stdio"
	HTTPAddr  string // MCP_HTTP_ADDR, default "127.0.0.1:8080"
	JWTSecret string // MCP_JWT_SECRET, optional; enables bearer auth on the http transport

	LogLevel string // LOG_LEVEL, default "info"
}

const (
	envKeyUserToken = "METRICOOL_USER_TOKEN"
	envKeyUserID    = "METRICOOL_USER_ID"
	envKeyBaseURL   = "METRICOOL_BASE_URL"
	envKeyRateLimit = "METRICOOL_RATE_LIMIT"
	envKeyTransport = "MCP_TRANSPORT"
	envKeyHTTPAddr  = "MCP_HTTP_ADDR"
	envKeyJWTSecret = "MCP_JWT_SECRET"
	envKeyLogLevel  = "LOG_LEVEL"

	DefaultBaseURL  = "https://app.metricool.com/api"
	DefaultHTTPAddr = "127.0.0.1:8080"
)

// Load reads configuration from environment variables, applying defaults for missing values.
// Load never fails; call Validate before using the result.
func Load() Config {
	return Config{
		UserToken: strings.TrimSpace(os.Getenv(envKeyUserToken)),
		UserID:    strings.TrimSpace(os.Getenv(envKeyUserID)),
		BaseURL:   strings.TrimRight(envOr(envKeyBaseURL, DefaultBaseURL), "/"),
		RateLimit: intOr(envKeyRateLimit, 0),
		Transport: strings.ToLower(envOr(envKeyTransport, TransportStdio)),
		HTTPAddr:  envOr(envKeyHTTPAddr, DefaultHTTPAddr),
		JWTSecret: os.Getenv(envKeyJWTSecret),
		LogLevel:  envOr(envKeyLogLevel, "info"),
	}
}

// Validate reports the first configuration error. Missing credentials are a
// startup failure, never a per-call one.
func (c Config) Validate() error {
	if c.UserToken == "" {
		return ErrMissingToken
	}
	if c.UserID == "" {
		return ErrMissingUserID
	}
	if !isDigits(c.UserID) {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, c.UserID)
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidTransport, c.Transport)
	}
	return nil
}

// Credentials returns the immutable identity injected into every outbound request.
func (c Config) Credentials() metricool.Credentials {
	return metricool.Credentials{Token: c.UserToken, UserID: c.UserID}
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// intOr parses key as an integer. Unset yields fallback; garbage yields -1 so
// Validate can reject it.
func intOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
