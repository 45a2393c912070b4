package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the tablescan home directory.
	DefaultDirName = ".tablescan"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// JobsDBName is the job tracker database file.
	JobsDBName = "jobs.db"

	// BlocksDirName caches fetched analysis blocks per job.
	BlocksDirName = "blocks"

	// ExportsDirName holds extraction results written without an explicit path.
	ExportsDirName = "exports"
)

// Dir represents the tablescan home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.tablescan).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// JobsDBPath returns the path to the job tracker database.
func (d *Dir) JobsDBPath() string {
	return filepath.Join(d.path, JobsDBName)
}

// BlocksDir returns the block cache directory.
func (d *Dir) BlocksDir() string {
	return filepath.Join(d.path, BlocksDirName)
}

// BlocksPath returns the cache file for a job's blocks.
func (d *Dir) BlocksPath(jobID string) string {
	return filepath.Join(d.BlocksDir(), jobID+".json")
}

// ExportsDir returns the directory for extraction results.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, ExportsDirName)
}

// ExportPath returns the default result path for a document type and format.
func (d *Dir) ExportPath(documentType, ext string) string {
	return filepath.Join(d.ExportsDir(), fmt.Sprintf("%s_data.%s", documentType, ext))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.BlocksDir(), d.ExportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// HasBlocks reports whether blocks for jobID are cached.
func (d *Dir) HasBlocks(jobID string) bool {
	_, err := os.Stat(d.BlocksPath(jobID))
	return err == nil
}
