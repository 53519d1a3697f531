package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Admin access
	ManagerPassword string
	SessionSecret   string

	// Institute identity used on documents and messages
	InstituteName string

	// Asset directories
	UploadDir string
	LogoDir   string
	BackupDir string

	// Session sweeper
	SessionSweepInterval time.Duration
	SessionRetention     time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tuition.db"),

		ManagerPassword: getEnv("MANAGER_PASSWORD", ""),
		SessionSecret:   getEnv("SESSION_SECRET", "default"),

		InstituteName: getEnv("INSTITUTE_NAME", "SANSA LEARN"),

		UploadDir: getEnv("UPLOAD_DIR", "./data/uploads"),
		LogoDir:   getEnv("LOGO_DIR", "./data/logo"),
		BackupDir: getEnv("BACKUP_DIR", "./data/backups"),

		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 6*time.Hour),
		SessionRetention:     getEnvDuration("SESSION_RETENTION", 30*24*time.Hour),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.ManagerPassword == "" {
		errs = append(errs, "MANAGER_PASSWORD must be set: the admin surface cannot run without a password")
	}

	for _, d := range []struct {
		name string
		path string
	}{
		{"upload", c.UploadDir},
		{"logo", c.LogoDir},
		{"backup", c.BackupDir},
	} {
		if d.path == "" {
			errs = append(errs, fmt.Sprintf("%s directory cannot be empty", d.name))
			continue
		}
		if err := os.MkdirAll(d.path, 0755); err != nil {
			errs = append(errs, fmt.Sprintf("cannot create %s directory '%s': %v", d.name, d.path, err))
		}
	}

	if c.SessionSweepInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session sweep interval %v: must be at least 1 minute", c.SessionSweepInterval))
	}
	if c.SessionRetention < time.Hour {
		errs = append(errs, fmt.Sprintf("invalid session retention %v: must be at least 1 hour", c.SessionRetention))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
