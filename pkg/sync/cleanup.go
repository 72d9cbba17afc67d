package sync

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/cdnsync/pkg/cache"
	"github.com/sidkik/cdnsync/pkg/errors"
)

// LegacyFiles are bookkeeping files left behind by older updaters. They're
// removed silently before every sync.
var LegacyFiles = []string{".sha-sums", ".iw4xrevision"}

// Rename moves a file within the synced directory.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Cleaner renames and removes files in Dir around a sync. Paths are relative
// to Dir, and paths that point outside of it are ignored.
type Cleaner struct {
	Dir      string
	Hashes   cache.Hashes
	Reporter Reporter
}

// RemoveLegacyFiles removes the given files if they exist.
func (c Cleaner) RemoveLegacyFiles(files []string) {
	for _, file := range files {
		path, ok := c.resolve(file)
		if !ok {
			continue
		}

		if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
			c.reporter().CleanupFailed(file, errors.WithContext(err, "remove"))
		}
	}
}

// Rename applies the renames in order. Renames whose source doesn't exist
// are skipped.
func (c Cleaner) Rename(renames []Rename) {
	for _, rename := range renames {
		from, okFrom := c.resolve(rename.From)
		to, okTo := c.resolve(rename.To)
		if !okFrom || !okTo {
			continue
		}

		if exists, _ := afero.Exists(fs, from); !exists {
			continue
		}

		err := fs.MkdirAll(filepath.Dir(to), 0755)
		if err == nil {
			err = fs.Rename(from, to)
		}
		if err != nil {
			c.reporter().CleanupFailed(rename.From,
				errors.WithContext(err, "rename to "+rename.To))
			continue
		}

		// Neither path is known to match the manifest anymore.
		c.forget(rename.From)
		c.forget(rename.To)
		c.reporter().Renamed(rename.From, rename.To)
	}
}

// Delete removes the given files and directories. Paths that don't exist
// are skipped.
func (c Cleaner) Delete(paths []string) {
	for _, relativePath := range paths {
		path, ok := c.resolve(relativePath)
		if !ok {
			continue
		}

		info, err := fs.Stat(path)
		if err != nil {
			continue
		}

		if info.IsDir() {
			err = fs.RemoveAll(path)
		} else {
			err = fs.Remove(path)
		}
		if err != nil {
			c.reporter().CleanupFailed(relativePath, errors.WithContext(err, "delete"))
			continue
		}

		c.forget(relativePath)
		c.reporter().Removed(relativePath)
	}
}

func (c Cleaner) resolve(relativePath string) (string, bool) {
	relativePath = strings.TrimSuffix(filepath.ToSlash(relativePath), "/")
	if !isLocalPath(relativePath) {
		log.WithField("path", relativePath).Warn(
			"Ignoring cleanup path that points outside the target directory")
		return "", false
	}
	return filepath.Join(c.Dir, filepath.FromSlash(relativePath)), true
}

// forget drops the cached hashes of `relativePath`, and of every file under
// it.
func (c Cleaner) forget(relativePath string) {
	if c.Hashes == nil {
		return
	}

	prefix := strings.TrimSuffix(filepath.ToSlash(relativePath), "/")
	for key := range c.Hashes {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			delete(c.Hashes, key)
		}
	}
}

func (c Cleaner) reporter() Reporter {
	if c.Reporter == nil {
		return LogReporter{}
	}
	return c.Reporter
}
