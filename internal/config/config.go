// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Remote spreadsheet source. When SheetURL is empty the journal runs in
	// local-only mode and the sync job is not scheduled.
	SheetURL     string
	SheetTimeout time.Duration // Per-fetch request timeout
	SyncSchedule string        // Cron spec for the refresh loop

	// Live quote stream. Optional; mark-to-market endpoints return empty
	// results when no URL is configured.
	QuoteWSURL string

	// Daily metric snapshots older than this many days are pruned from the
	// cache database. Zero disables pruning.
	SnapshotRetentionDays int

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Enabled   bool
	Endpoint  string // Custom endpoint for S3-compatible stores (empty for AWS)
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Schedule      string // Cron spec
	RetentionDays int    // Archives older than this are rotated out (min 3 kept)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory: JOURNAL_DATA_DIR or ./data, always resolved
	// to an absolute path, created if missing.
	dataDir := getEnv("JOURNAL_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8090),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		SheetURL:     getEnv("SHEET_URL", ""),
		SheetTimeout: getEnvAsDuration("SHEET_TIMEOUT", 30*time.Second),
		SyncSchedule: getEnv("SYNC_SCHEDULE", "@every 5m"),
		QuoteWSURL:   getEnv("QUOTE_WS_URL", ""),

		SnapshotRetentionDays: getEnvAsInt("SNAPSHOT_RETENTION_DAYS", 365),

		Backup: loadBackupConfig(),
	}

	return cfg, nil
}

// loadBackupConfig reads backup settings; backups stay disabled unless a
// bucket is configured.
func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:   getEnvAsBool("BACKUP_ENABLED", bucket != ""),
		Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:    bucket,
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Schedule:      getEnv("BACKUP_SCHEDULE", "@daily"),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
