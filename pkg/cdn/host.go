package cdn

import (
	"strings"
	"time"
)

// DefaultHosts are the CDN origins that are rated when neither the user config
// nor the command line override them.
var DefaultHosts = []string{
	"cdn.alterware.ovh",
	"us-cdn.alterware.ovh",
}

// UnratedScore is the score of a host that hasn't been probed yet.
const UnratedScore = 255

// Host is a candidate CDN origin and the outcome of its most recent rating.
type Host struct {
	// Address is either a bare hostname, in which case HTTPS is assumed, or a
	// full URL.
	Address string

	// Score is the quality of the host. 0 means the host couldn't be reached.
	Score uint8

	// Latency is nil if the host has never answered a probe.
	Latency *time.Duration

	// EdgeNetwork is the acceleration network detected in front of the host,
	// if any.
	EdgeNetwork string
}

// NewHost returns an unrated host.
func NewHost(address string) Host {
	return Host{Address: address, Score: UnratedScore}
}

// URL returns the canonical URL of the host's root, always ending in a slash.
func (h Host) URL() string {
	url := h.Address
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url
}

// Reachable returns whether the host answered its last probe.
func (h Host) Reachable() bool {
	return h.Score != 0
}

// better returns whether `a` should be preferred over `b`. Scores are compared
// first. Ties are broken by the lower latency, and a host with a measured
// latency always beats one without.
func better(a, b Host) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Latency == nil {
		return false
	}
	if b.Latency == nil {
		return true
	}
	return *a.Latency < *b.Latency
}
