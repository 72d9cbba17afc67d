package errors

import (
	"fmt"
)

// UnreachableHost is returned by a probe that couldn't reach a CDN host
// within the timeout. It never stops a sync; the host is rated 0 instead.
type UnreachableHost struct {
	Host string
	Err  error
}

func (err UnreachableHost) Error() string {
	return fmt.Sprintf("host %s unreachable: %s", err.Host, err.Err)
}

func (err UnreachableHost) Unwrap() error {
	return err.Err
}

// ManifestUnavailableError means the file list couldn't be retrieved from the
// CDN. Nothing can be synced without it.
type ManifestUnavailableError struct {
	URL string
	Err error
}

func (err ManifestUnavailableError) Error() string {
	return fmt.Sprintf("manifest %s unavailable: %s", err.URL, err.Err)
}

func (err ManifestUnavailableError) FriendlyMessage() string {
	return fmt.Sprintf("Failed to retrieve the file list from %s.\n"+
		"Check your connection, or pick another CDN with --cdn-url.\n\n"+
		"Error: %s", err.URL, err.Err)
}

// TransportError is a failure while streaming a file from the CDN.
type TransportError struct {
	Path string
	Err  error
}

func (err TransportError) Error() string {
	return fmt.Sprintf("download %s: %s", err.Path, err.Err)
}

func (err TransportError) Unwrap() error {
	return err.Err
}

// IntegrityMismatchError is returned when a downloaded file doesn't hash to
// the value published in the manifest.
type IntegrityMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (err IntegrityMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s",
		err.Path, err.Expected, err.Actual)
}
