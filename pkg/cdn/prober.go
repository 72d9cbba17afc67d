package cdn

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"

	"github.com/sidkik/cdnsync/pkg/errors"
)

// ProbeResult is the outcome of a successful probe.
type ProbeResult struct {
	Latency     time.Duration
	EdgeNetwork string
}

// Prober measures how quickly a host responds.
type Prober interface {
	// Probe sends a single request to `url`. It returns an
	// errors.UnreachableHost if no response arrived within `timeout`.
	Probe(ctx context.Context, url string, timeout time.Duration) (ProbeResult, error)
}

// EdgeFingerprint identifies an edge network by a response header. If Value
// is empty, the presence of the header is enough.
type EdgeFingerprint struct {
	Network string
	Header  string
	Value   string
}

// DefaultFingerprints detect Cloudflare.
var DefaultFingerprints = []EdgeFingerprint{
	{Network: Cloudflare, Header: "CF-RAY"},
	{Network: Cloudflare, Header: "Server", Value: "cloudflare"},
}

type httpProber struct {
	client       *resty.Client
	clock        clockwork.Clock
	fingerprints []EdgeFingerprint
}

// NewProber returns a Prober that issues GET requests with `client`.
func NewProber(client *resty.Client) Prober {
	return httpProber{
		client:       client,
		clock:        clockwork.NewRealClock(),
		fingerprints: DefaultFingerprints,
	}
}

func (p httpProber) Probe(ctx context.Context, url string, timeout time.Duration) (ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := p.clock.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return ProbeResult{}, errors.UnreachableHost{Host: url, Err: err}
	}
	latency := p.clock.Now().Sub(start)
	if body := resp.RawBody(); body != nil {
		body.Close()
	}

	return ProbeResult{
		Latency:     latency,
		EdgeNetwork: detectEdgeNetwork(resp.Header(), p.fingerprints),
	}, nil
}

func detectEdgeNetwork(header http.Header, fingerprints []EdgeFingerprint) string {
	for _, fp := range fingerprints {
		values := header.Values(fp.Header)
		if len(values) == 0 {
			continue
		}
		if fp.Value == "" {
			return fp.Network
		}
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(v), fp.Value) {
				return fp.Network
			}
		}
	}
	return ""
}
