package sync

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// Reporter receives progress updates while a group is synced.
type Reporter interface {
	// Checked is called for every file that already matches the manifest.
	Checked(path string)

	// NothingToDownload is called when every file in the group is up to date.
	NothingToDownload(group string)

	// Pending is called before downloads for a group start.
	Pending(group string, files int, size int64)

	// Downloading is called before every download attempt. The contents of
	// the file are written to the returned writer as they're received.
	Downloading(path string, size int64) io.Writer

	// Downloaded is called after a file has been downloaded and verified.
	Downloaded(path string)

	// Skipped is called when a file couldn't be verified and won't be retried.
	Skipped(path string, err error)

	Renamed(from, to string)
	Removed(path string)

	// CleanupFailed is called when a rename or removal fails. Cleanup
	// failures don't stop the sync.
	CleanupFailed(path string, err error)
}

// LogReporter reports progress through the logger.
type LogReporter struct{}

func (LogReporter) Checked(path string) {
	log.WithField("path", path).Debug("Checked")
}

func (LogReporter) NothingToDownload(group string) {
	log.WithField("group", group).Info("No files to download")
}

func (LogReporter) Pending(group string, files int, size int64) {
	log.WithFields(log.Fields{
		"group": group,
		"files": files,
		"size":  size,
	}).Info("Downloading outdated or missing files")
}

func (LogReporter) Downloading(path string, size int64) io.Writer {
	log.WithFields(log.Fields{
		"path": path,
		"size": size,
	}).Debug("Downloading")
	return io.Discard
}

func (LogReporter) Downloaded(path string) {
	log.WithField("path", path).Info("Downloaded")
}

func (LogReporter) Skipped(path string, err error) {
	log.WithError(err).WithField("path", path).Warn("Skipped file")
}

func (LogReporter) Renamed(from, to string) {
	log.WithFields(log.Fields{"from": from, "to": to}).Info("Renamed")
}

func (LogReporter) Removed(path string) {
	log.WithField("path", path).Info("Removed")
}

func (LogReporter) CleanupFailed(path string, err error) {
	log.WithError(err).WithField("path", path).Warn("Cleanup failed")
}
