package sync

import (
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/cdnsync/pkg/cache"
	"github.com/sidkik/cdnsync/pkg/manifest"
)

// Task is a manifest entry paired with where it lives on disk.
type Task struct {
	Entry manifest.Entry

	// RelativePath is the path of the file within the synced directory. It's
	// also the key in the hash cache.
	RelativePath string

	// Destination is the full path of the file on disk.
	Destination string
}

// Classifier compares manifest entries against the files in Dir.
type Classifier struct {
	Dir string

	// Hashes is the hash cache of Dir. Files that match the manifest are
	// recorded in it.
	Hashes cache.Hashes

	// Force ignores the hashes in the cache and rehashes every existing file.
	Force bool
}

// Classify splits the entries of `group` into files that already match the
// manifest and files that need to be downloaded. Files that need to be
// downloaded are dropped from the cache until they're verified again.
func (c Classifier) Classify(entries []manifest.Entry, group string) (upToDate, toDownload []Task) {
	for _, entry := range manifest.Group(entries, group) {
		relativePath, _ := entry.RelativePath(group)
		if !isLocalPath(relativePath) {
			log.WithField("name", entry.Name).Warn(
				"Ignoring manifest entry that points outside the target directory")
			continue
		}

		task := Task{
			Entry:        entry,
			RelativePath: relativePath,
			Destination:  filepath.Join(c.Dir, filepath.FromSlash(relativePath)),
		}

		if !c.matches(task) {
			delete(c.Hashes, relativePath)
			toDownload = append(toDownload, task)
			continue
		}

		c.Hashes[relativePath] = strings.ToLower(entry.Blake3)
		upToDate = append(upToDate, task)
	}
	return upToDate, toDownload
}

// matches returns whether the file on disk for `task` has the hash listed in
// the manifest.
func (c Classifier) matches(task Task) bool {
	exists, err := afero.Exists(fs, task.Destination)
	if err != nil || !exists {
		return false
	}

	localHash, ok := "", false
	if !c.Force {
		localHash, ok = c.Hashes[task.RelativePath]
	}
	if !ok {
		localHash, err = HashFile(task.Destination)
		if err != nil {
			log.WithError(err).WithField("path", task.Destination).Warn(
				"Failed to hash local file. It will be downloaded again.")
			return false
		}
	}
	return strings.EqualFold(localHash, task.Entry.Blake3)
}

func isLocalPath(relativePath string) bool {
	if relativePath == "" || strings.HasSuffix(relativePath, "/") {
		return false
	}
	cleaned := filepath.Clean(filepath.FromSlash(relativePath))
	return !filepath.IsAbs(cleaned) &&
		cleaned != ".." &&
		!strings.HasPrefix(cleaned, ".."+string(filepath.Separator))
}
