// Package config resolves service settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultMaxUploadMB = 15
	defaultRetention   = 2 * time.Hour
)

// Config carries the service settings. Every field has a default that
// works on an empty machine; PRINTREADY_* environment variables override.
type Config struct {
	UploadDir      string
	ProcessedDir   string
	MaxUploadBytes int64
	GuidePath      string
	Retention      time.Duration
}

// Load reads settings from the environment, falling back to
// temp-directory storage and a 15MB upload cap.
func Load() (Config, error) {
	cfg := Config{
		UploadDir:      filepath.Join(os.TempDir(), "printready_uploads"),
		ProcessedDir:   filepath.Join(os.TempDir(), "printready_processed"),
		MaxUploadBytes: defaultMaxUploadMB << 20,
		GuidePath:      filepath.Join("static", "Printing_Guide.pdf"),
		Retention:      defaultRetention,
	}

	if v := os.Getenv("PRINTREADY_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("PRINTREADY_PROCESSED_DIR"); v != "" {
		cfg.ProcessedDir = v
	}
	if v := os.Getenv("PRINTREADY_MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil || mb <= 0 {
			return Config{}, fmt.Errorf("invalid PRINTREADY_MAX_UPLOAD_MB %q", v)
		}
		cfg.MaxUploadBytes = int64(mb) << 20
	}
	if v := os.Getenv("PRINTREADY_GUIDE_PATH"); v != "" {
		cfg.GuidePath = v
	}
	if v := os.Getenv("PRINTREADY_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid PRINTREADY_RETENTION %q", v)
		}
		cfg.Retention = d
	}
	return cfg, nil
}

// MaxUploadMB is the upload cap in whole megabytes, for error messages.
func (c Config) MaxUploadMB() int64 {
	return c.MaxUploadBytes >> 20
}
