package cache

import (
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/cdnsync/pkg/errors"
)

const (
	// FileName is the name of the cache file within the synced directory.
	FileName = ".cdnsync-cache.yaml"

	// SchemaVersion is the only cache format this binary understands. Caches
	// with any other version are discarded.
	SchemaVersion = "v1"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Hashes maps paths relative to the synced directory to the lowercase hex
// hash of their contents when they were last verified.
type Hashes map[string]string

type cacheFile struct {
	Version string `json:"version"`
	Hashes  Hashes `json:"hashes"`
}

// Path returns the location of the cache for `dir`.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the cache for `dir`. It never fails: a missing, unreadable or
// incompatible cache is returned as an empty cache so that every file gets
// rehashed.
func Load(dir string) Hashes {
	path := Path(dir)
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn(
				"Failed to read hash cache. All files will be rehashed.")
		}
		return Hashes{}
	}

	var parsed cacheFile
	if err := yaml.Unmarshal(contents, &parsed); err != nil {
		log.WithError(err).WithField("path", path).Warn(
			"Hash cache is corrupt. All files will be rehashed.")
		return Hashes{}
	}

	if parsed.Version != SchemaVersion {
		log.WithFields(log.Fields{
			"path":     path,
			"version":  parsed.Version,
			"expected": SchemaVersion,
		}).Info("Ignoring hash cache from an incompatible version.")
		return Hashes{}
	}

	if parsed.Hashes == nil {
		return Hashes{}
	}
	return parsed.Hashes
}

// Save writes `hashes` as the cache for `dir`.
func Save(dir string, hashes Hashes) error {
	contents, err := yaml.Marshal(cacheFile{
		Version: SchemaVersion,
		Hashes:  hashes,
	})
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.WithContext(err, "create directory")
	}

	// Write to a temporary file first so that an interrupted save can't
	// leave a truncated cache behind.
	path := Path(dir)
	tmpPath := path + ".tmp"
	if err := afero.WriteFile(fs, tmpPath, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return errors.WithContext(err, "rename")
	}
	return nil
}
