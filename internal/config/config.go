// Package config loads ConceptDeck settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// DefaultPort is the HTTP listen port.
	DefaultPort = 8090

	// DefaultDataDir holds the database, snapshot and export files.
	DefaultDataDir = "./data"

	// DefaultImportMaxBytes caps the size of uploaded concept files.
	DefaultImportMaxBytes = 5 * 1024 * 1024
)

// Config holds the runtime settings for the desktop app.
type Config struct {
	Port           int
	DataDir        string
	ExportDir      string
	LogLevel       string
	ImportMaxBytes int64
}

// Load reads settings from the environment, falling back to defaults.
// A .env file next to the binary is honored when present.
func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		Port:           envInt("CONCEPTDECK_PORT", DefaultPort),
		DataDir:        envString("CONCEPTDECK_DATA_DIR", DefaultDataDir),
		LogLevel:       envString("CONCEPTDECK_LOG_LEVEL", "info"),
		ImportMaxBytes: envInt64("CONCEPTDECK_IMPORT_MAX_BYTES", DefaultImportMaxBytes),
	}
	cfg.ExportDir = envString("CONCEPTDECK_EXPORT_DIR", filepath.Join(cfg.DataDir, "exports"))
	return cfg
}

// DatabasePath returns the SQLite file location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "conceptdeck.db")
}

// SnapshotPath returns the cache snapshot location under the data dir.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "snapshot.json")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
