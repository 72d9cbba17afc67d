package sync

import (
	gosync "sync"
)

// FailureKind is the kind of failure that a RetryPolicy is consulted about.
type FailureKind int

const (
	// TransportFailure means the file couldn't be streamed from the CDN.
	TransportFailure FailureKind = iota

	// IntegrityMismatch means the downloaded file didn't hash to the value in
	// the manifest.
	IntegrityMismatch
)

func (kind FailureKind) String() string {
	switch kind {
	case TransportFailure:
		return "transport failure"
	case IntegrityMismatch:
		return "integrity mismatch"
	default:
		return "unknown failure"
	}
}

// RetryPolicy decides whether a failed download should be attempted again.
type RetryPolicy interface {
	ShouldRetry(kind FailureKind, path string, err error) bool
}

// BoundedRetries retries each path up to Max times, and then gives up.
type BoundedRetries struct {
	Max int

	lock     gosync.Mutex
	attempts map[string]int
}

// NewBoundedRetries returns a RetryPolicy that retries every file at most
// `max` times.
func NewBoundedRetries(max int) *BoundedRetries {
	return &BoundedRetries{Max: max, attempts: map[string]int{}}
}

func (policy *BoundedRetries) ShouldRetry(_ FailureKind, path string, _ error) bool {
	policy.lock.Lock()
	defer policy.lock.Unlock()

	if policy.attempts == nil {
		policy.attempts = map[string]int{}
	}
	policy.attempts[path]++
	return policy.attempts[path] <= policy.Max
}
