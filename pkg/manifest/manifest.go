package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cdnsync/pkg/errors"
)

// FileName is the name of the manifest at the root of every CDN host.
const FileName = "files.json"

// Entry is a file published by the CDN.
type Entry struct {
	// Name is the path of the file relative to the CDN root. The first
	// component is the directory group, e.g. "engine/a.exe".
	Name string `json:"name"`

	// Size is the size of the file in bytes.
	Size int64 `json:"size"`

	// Blake3 is the hex encoded BLAKE3-256 hash of the file's contents.
	Blake3 string `json:"blake3"`
}

// URL returns the location of `path` on the CDN host at `origin`.
func URL(origin, path string) string {
	return strings.TrimSuffix(origin, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Fetch downloads and parses the manifest from `origin`. Any failure is
// returned as an errors.ManifestUnavailableError.
func Fetch(ctx context.Context, client *resty.Client, origin string) ([]Entry, error) {
	url := URL(origin, FileName)

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.ManifestUnavailableError{URL: url, Err: err}
	}
	if resp.IsError() {
		return nil, errors.ManifestUnavailableError{
			URL: url,
			Err: fmt.Errorf("server responded with %s", resp.Status()),
		}
	}

	// Decode explicitly rather than through resty so that a manifest served
	// with the wrong content type still parses.
	var entries []Entry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, errors.ManifestUnavailableError{
			URL: url,
			Err: errors.WithContext(err, "parse"),
		}
	}

	log.WithFields(log.Fields{
		"url":   url,
		"files": len(entries),
	}).Debug("Retrieved manifest")
	return entries, nil
}

// Group returns the entries under the directory group `group`, in manifest
// order.
func Group(entries []Entry, group string) []Entry {
	prefix := group + "/"

	var grouped []Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Name, prefix) {
			grouped = append(grouped, e)
		}
	}
	return grouped
}

// RelativePath returns the path of `e` within its group, or false if `e`
// isn't in `group`.
func (e Entry) RelativePath(group string) (string, bool) {
	prefix := group + "/"
	if !strings.HasPrefix(e.Name, prefix) {
		return "", false
	}
	return strings.TrimPrefix(e.Name, prefix), true
}

// TotalSize returns the sum of the sizes of `entries`.
func TotalSize(entries []Entry) (size int64) {
	for _, e := range entries {
		size += e.Size
	}
	return size
}
