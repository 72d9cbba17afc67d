package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"lukechampine.com/frand"

	"github.com/sidkik/cdnsync/pkg/cache"
	"github.com/sidkik/cdnsync/pkg/errors"
	"github.com/sidkik/cdnsync/pkg/manifest"
)

const (
	cacheBusterLength  = 6
	cacheBusterCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	// DefaultExemptSuffixes are files whose contents are expected to differ
	// from the manifest, such as pages rewritten by the CDN.
	DefaultExemptSuffixes = []string{".html"}

	// DefaultExecutableSuffixes are marked executable after they're downloaded.
	DefaultExecutableSuffixes = []string{".exe"}
)

// Syncer downloads the files of a manifest into Dir.
type Syncer struct {
	// Client is used to download files. It shouldn't have a request timeout,
	// since files may be large.
	Client *resty.Client

	// Origin is the URL of the CDN host to download from.
	Origin string

	Dir    string
	Hashes cache.Hashes
	Force  bool

	Policy   RetryPolicy
	Reporter Reporter

	ExemptSuffixes     []string
	ExecutableSuffixes []string
}

// Result lists the relative paths that were handled by SyncGroup.
type Result struct {
	Checked    []string
	Downloaded []string

	// Skipped files failed verification and were left unverified on disk.
	Skipped []string
}

// SyncGroup makes the files in the directory group `group` match the
// manifest. Files that fail verification are skipped if the retry policy
// gives up on them. A download that can't be completed is returned as an
// errors.TransportError.
func (s *Syncer) SyncGroup(ctx context.Context, entries []manifest.Entry, group string) (Result, error) {
	var res Result
	reporter := s.reporter()

	upToDate, toDownload := Classifier{
		Dir:    s.Dir,
		Hashes: s.Hashes,
		Force:  s.Force,
	}.Classify(entries, group)

	for _, task := range upToDate {
		reporter.Checked(task.RelativePath)
		res.Checked = append(res.Checked, task.RelativePath)
	}

	if len(toDownload) == 0 {
		reporter.NothingToDownload(group)
		return res, nil
	}

	var size int64
	for _, task := range toDownload {
		size += task.Entry.Size
	}
	reporter.Pending(group, len(toDownload), size)

	for _, task := range toDownload {
		verified, err := s.download(ctx, task)
		if err != nil {
			return res, err
		}

		if verified {
			res.Downloaded = append(res.Downloaded, task.RelativePath)
		} else {
			res.Skipped = append(res.Skipped, task.RelativePath)
		}
	}

	log.WithFields(log.Fields{
		"group":      group,
		"checked":    len(res.Checked),
		"downloaded": len(res.Downloaded),
		"skipped":    len(res.Skipped),
	}).Debug("Synced group")
	return res, nil
}

// download fetches the file for `task` until it's verified, or the retry
// policy gives up. It returns false if the file was skipped.
func (s *Syncer) download(ctx context.Context, task Task) (bool, error) {
	if err := fs.MkdirAll(filepath.Dir(task.Destination), 0755); err != nil {
		return false, errors.WithContext(err, "create parent directory")
	}

	expected := strings.ToLower(task.Entry.Blake3)
	bustCache := false
	for {
		url := manifest.URL(s.Origin, task.Entry.Name)
		if bustCache {
			url += "?" + cacheBuster()
		}

		actual, err := s.fetch(ctx, url, task)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}

			err = errors.TransportError{Path: task.RelativePath, Err: err}
			if s.Policy.ShouldRetry(TransportFailure, task.RelativePath, err) {
				log.WithError(err).Debug("Retrying download")
				bustCache = false
				continue
			}
			return false, err
		}

		if actual != expected {
			if hasSuffix(task.Destination, s.ExemptSuffixes) {
				log.WithField("path", task.RelativePath).Debug(
					"Accepting hash mismatch for exempt file")
			} else {
				err := errors.IntegrityMismatchError{
					Path:     task.RelativePath,
					Expected: expected,
					Actual:   actual,
				}
				if s.Policy.ShouldRetry(IntegrityMismatch, task.RelativePath, err) {
					log.WithError(err).Debug("Retrying download without cache")
					bustCache = true
					continue
				}

				s.reporter().Skipped(task.RelativePath, err)
				return false, nil
			}
		}

		s.Hashes[task.RelativePath] = actual
		if hasSuffix(task.Destination, s.ExecutableSuffixes) {
			markExecutable(task.Destination)
		}
		s.reporter().Downloaded(task.RelativePath)
		return true, nil
	}
}

// fetch streams `url` into the task's destination, and returns the hash of
// what was written.
func (s *Syncer) fetch(ctx context.Context, url string, task Task) (string, error) {
	resp, err := s.Client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return "", err
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return "", fmt.Errorf("server responded with %s", resp.Status())
	}

	f, err := fs.OpenFile(task.Destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", errors.WithContext(err, "open destination")
	}

	progress := s.reporter().Downloading(task.RelativePath, task.Entry.Size)
	_, copyErr := io.Copy(io.MultiWriter(f, progress), body)
	closeErr := f.Close()
	if copyErr != nil {
		return "", copyErr
	}
	if closeErr != nil {
		return "", errors.WithContext(closeErr, "close destination")
	}

	return HashFile(task.Destination)
}

func (s *Syncer) reporter() Reporter {
	if s.Reporter == nil {
		return LogReporter{}
	}
	return s.Reporter
}

func cacheBuster() string {
	token := make([]byte, cacheBusterLength)
	for i := range token {
		token[i] = cacheBusterCharset[frand.Intn(len(cacheBusterCharset))]
	}
	return string(token)
}

func markExecutable(path string) {
	if runtime.GOOS == "windows" {
		return
	}

	if err := fs.Chmod(path, 0755); err != nil {
		log.WithError(err).WithField("path", path).Warn(
			"Failed to mark file as executable")
	}
}

func hasSuffix(path string, suffixes []string) bool {
	path = strings.ToLower(path)
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(path, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}
