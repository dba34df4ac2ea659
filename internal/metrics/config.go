package metrics

import (
	"path/filepath"

	"codeberg.org/mutker/battmon/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm   = 0o755
	defaultBatchSize = 1
	backupDirName    = "backups"
)

type Config struct {
	DBPath    string
	BatchSize int
	Enabled   bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize: defaultBatchSize,
		Enabled:   false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if the sample log is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.Enabled && c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, "batch size must be at least 1")
	}
	return nil
}

func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), backupDirName)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
