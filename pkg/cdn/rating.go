package cdn

import (
	"time"
)

// Cloudflare is the name of the edge network detected by DefaultFingerprints.
const Cloudflare = "cloudflare"

// Penalty lowers the score of hosts behind EdgeNetwork when the client is on
// the network identified by ASN. Some networks peer poorly with some edge
// networks, and the edge's local caching makes the probe latency look better
// than real transfers will be.
type Penalty struct {
	EdgeNetwork string
	ASN         uint32
	Factor      float64
}

// DefaultPenalties contains the routes that are known to be slow.
var DefaultPenalties = []Penalty{
	// Deutsche Telekom.
	{EdgeNetwork: Cloudflare, ASN: 3320, Factor: 0.1},
	// Magyar Telekom, a subsidiary of Deutsche Telekom.
	{EdgeNetwork: Cloudflare, ASN: 5483, Factor: 0.1},
}

// Rater converts probe results into scores.
type Rater struct {
	Penalties []Penalty
}

// NewRater returns a Rater that applies DefaultPenalties.
func NewRater() Rater {
	return Rater{Penalties: DefaultPenalties}
}

// Rate returns the score of a host that answered a probe in `latency`.
// `edgeNetwork` is empty if the host isn't behind a known edge network.
// The result is always at least 1; 0 is reserved for unreachable hosts.
func (r Rater) Rate(latency time.Duration, edgeNetwork string, asn uint32) uint8 {
	score := RateLatency(latency)
	if edgeNetwork == "" {
		return score
	}

	for _, penalty := range r.Penalties {
		if penalty.EdgeNetwork == edgeNetwork && penalty.ASN == asn {
			penalized := uint8(float64(score) * penalty.Factor)
			if penalized < 1 {
				penalized = 1
			}
			return penalized
		}
	}
	return score
}

// RateLatency scores a latency on a piecewise linear curve. It never
// increases with latency.
func RateLatency(latency time.Duration) uint8 {
	ms := float64(latency.Milliseconds())

	var rating float64
	switch {
	case ms <= 50:
		rating = 240
	case ms <= 100:
		rating = 240 - (ms-50)*1.0
	case ms <= 200:
		rating = 190 - (ms-100)*0.5
	case ms <= 500:
		rating = 140 - (ms-200)*0.033
	default:
		rating = 100
	}

	if rating < 1 {
		rating = 1
	} else if rating > 255 {
		rating = 255
	}
	return uint8(rating)
}
