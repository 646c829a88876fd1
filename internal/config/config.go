// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
)

// MinJWTSecretBytes is the shortest accepted session signing secret.
const MinJWTSecretBytes = 32

// DefaultMaxImageBytes mirrors the OCR gateway's default size ceiling.
const DefaultMaxImageBytes = 10 << 20

// placeholderVisionKey ships in example env files and disables OCR.
const placeholderVisionKey = "your_api_key_here"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	ImageDir   string
	GCSBucket  string
	GCSPrefix  string

	AuthUsername     string
	AuthPasswordHash string
	JWTSecret        []byte
	CookieSecure     bool

	VisionAPIKey   string
	VisionEndpoint string
	MaxImageBytes  int

	LogLevel  slog.Level
	LogFormat string
}

// HasVisionKey reports whether a real OCR provider key is configured. The
// placeholder value from example env files counts as unset.
func (c *Config) HasVisionKey() bool {
	return c.VisionAPIKey != "" && c.VisionAPIKey != placeholderVisionKey
}

// UsesGCS reports whether source images go to Cloud Storage instead of ImageDir.
func (c *Config) UsesGCS() bool {
	return c.GCSBucket != ""
}

// Credential returns the operator login material.
func (c *Config) Credential() model.Credential {
	return model.Credential{
		Username:      c.AuthUsername,
		PasswordHash:  c.AuthPasswordHash,
		SigningSecret: c.JWTSecret,
	}
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Load reads configuration from environment variables and returns a validated Config.
// PAGESCAN_AUTH_USERNAME, PAGESCAN_AUTH_PASSWORD_HASH (bcrypt) and
// PAGESCAN_JWT_SECRET (at least 32 bytes) are required. Optional variables with
// defaults: PAGESCAN_LISTEN_ADDR (127.0.0.1:8080), PAGESCAN_DB_PATH (storage/app.db),
// PAGESCAN_IMAGE_DIR (storage/images), PAGESCAN_COOKIE_SECURE (true),
// PAGESCAN_MAX_IMAGE_BYTES (10485760), PAGESCAN_LOG_LEVEL (info), PAGESCAN_LOG_FORMAT (text).
// OCR stays disabled until PAGESCAN_VISION_API_KEY is set.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envOr("PAGESCAN_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         envOr("PAGESCAN_DB_PATH", "storage/app.db"),
		ImageDir:       envOr("PAGESCAN_IMAGE_DIR", "storage/images"),
		GCSBucket:      strings.TrimSpace(os.Getenv("PAGESCAN_GCS_BUCKET")),
		GCSPrefix:      strings.TrimSpace(os.Getenv("PAGESCAN_GCS_PREFIX")),
		AuthUsername:   os.Getenv("PAGESCAN_AUTH_USERNAME"),
		VisionAPIKey:   strings.TrimSpace(os.Getenv("PAGESCAN_VISION_API_KEY")),
		VisionEndpoint: os.Getenv("PAGESCAN_VISION_ENDPOINT"),
		CookieSecure:   true,
		MaxImageBytes:  DefaultMaxImageBytes,
		LogFormat:      "text",
	}

	var errs []error

	if cfg.AuthUsername == "" {
		errs = append(errs, errors.New("PAGESCAN_AUTH_USERNAME is required"))
	}

	cfg.AuthPasswordHash = os.Getenv("PAGESCAN_AUTH_PASSWORD_HASH")
	if cfg.AuthPasswordHash == "" {
		errs = append(errs, errors.New("PAGESCAN_AUTH_PASSWORD_HASH is required"))
	} else if _, err := bcrypt.Cost([]byte(cfg.AuthPasswordHash)); err != nil {
		errs = append(errs, fmt.Errorf("PAGESCAN_AUTH_PASSWORD_HASH is not a bcrypt hash: %w", err))
	}

	secret := os.Getenv("PAGESCAN_JWT_SECRET")
	switch {
	case secret == "":
		errs = append(errs, errors.New("PAGESCAN_JWT_SECRET is required"))
	case len(secret) < MinJWTSecretBytes:
		errs = append(errs, fmt.Errorf("PAGESCAN_JWT_SECRET must be at least %d bytes, got %d", MinJWTSecretBytes, len(secret)))
	default:
		cfg.JWTSecret = []byte(secret)
	}

	if v, ok := os.LookupEnv("PAGESCAN_COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PAGESCAN_COOKIE_SECURE has invalid boolean %q: %w", v, err))
		} else {
			cfg.CookieSecure = b
		}
	}

	if v, ok := os.LookupEnv("PAGESCAN_MAX_IMAGE_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("PAGESCAN_MAX_IMAGE_BYTES must be a positive integer, got %q", v))
		} else {
			cfg.MaxImageBytes = n
		}
	}

	if v, ok := os.LookupEnv("PAGESCAN_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("PAGESCAN_LOG_LEVEL has invalid level %q: %w", v, err))
		}
	}

	if v, ok := os.LookupEnv("PAGESCAN_LOG_FORMAT"); ok {
		switch v = strings.ToLower(v); v {
		case "text", "json":
			cfg.LogFormat = v
		default:
			errs = append(errs, fmt.Errorf("PAGESCAN_LOG_FORMAT must be text or json, got %q", v))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
