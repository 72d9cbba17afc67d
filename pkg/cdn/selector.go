package cdn

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// InitialProbeTimeout is used for the first rating pass of a run. It
	// screens out dead hosts quickly.
	InitialProbeTimeout = 1000 * time.Millisecond

	// ProbeTimeout is used for any later pass, so that hosts that are slow
	// on a cold connection still get rated.
	ProbeTimeout = 5000 * time.Millisecond
)

// Selector rates a fixed set of candidate hosts and tracks the best one.
type Selector struct {
	prober Prober
	rater  Rater

	// hosts is only written during RateAll. Each rating goroutine owns
	// exactly one element.
	hosts []Host

	activeLock sync.RWMutex
	active     *Host
}

// NewSelector creates a Selector over `addresses`. No host is active until
// RateAll or SelectBest is called.
func NewSelector(addresses []string, prober Prober, rater Rater) *Selector {
	hosts := make([]Host, 0, len(addresses))
	for _, addr := range addresses {
		hosts = append(hosts, NewHost(addr))
	}
	return &Selector{
		prober: prober,
		rater:  rater,
		hosts:  hosts,
	}
}

// RateAll probes every host concurrently, waits for all of the probes to
// finish, and then activates the best host. There is no active host while
// the pass is running.
// `initial` should be true for the first pass of a run.
func (s *Selector) RateAll(ctx context.Context, asn uint32, initial bool) {
	s.setActive(nil)

	timeout := ProbeTimeout
	if initial {
		timeout = InitialProbeTimeout
	}

	var group errgroup.Group
	for i := range s.hosts {
		host := &s.hosts[i]
		group.Go(func() error {
			s.rate(ctx, host, asn, timeout)
			return nil
		})
	}
	// The rating goroutines never fail.
	_ = group.Wait()

	s.SelectBest()
}

func (s *Selector) rate(ctx context.Context, host *Host, asn uint32, timeout time.Duration) {
	res, err := s.prober.Probe(ctx, host.URL(), timeout)
	if err != nil {
		log.WithError(err).WithField("host", host.Address).Warn("Failed to connect to CDN host")
		host.Score = 0
		host.Latency = nil
		host.EdgeNetwork = ""
		return
	}

	latency := res.Latency
	host.Latency = &latency
	host.EdgeNetwork = res.EdgeNetwork
	host.Score = s.rater.Rate(latency, res.EdgeNetwork, asn)

	log.WithFields(log.Fields{
		"host":        host.Address,
		"score":       host.Score,
		"latencyMs":   latency.Milliseconds(),
		"edgeNetwork": host.EdgeNetwork,
		"asn":         asn,
	}).Debug("Rated CDN host")
}

// SelectBest activates and returns the best host according to the most recent
// ratings. It returns false only if there are no candidates.
func (s *Selector) SelectBest() (Host, bool) {
	if len(s.hosts) == 0 {
		return Host{}, false
	}

	best := 0
	for i := 1; i < len(s.hosts); i++ {
		if better(s.hosts[i], s.hosts[best]) {
			best = i
		}
	}

	winner := s.hosts[best]
	s.setActive(&winner)
	return winner, true
}

// Active returns a copy of the active host.
func (s *Selector) Active() (Host, bool) {
	s.activeLock.RLock()
	defer s.activeLock.RUnlock()

	if s.active == nil {
		return Host{}, false
	}
	return *s.active, true
}

// ActiveURL returns the URL of the active host.
func (s *Selector) ActiveURL() (string, bool) {
	host, ok := s.Active()
	if !ok {
		return "", false
	}
	return host.URL(), true
}

// AllUnreachable returns whether every candidate failed its last probe.
func (s *Selector) AllUnreachable() bool {
	for _, h := range s.hosts {
		if h.Reachable() {
			return false
		}
	}
	return true
}

// Hosts returns a copy of the candidates, best first.
func (s *Selector) Hosts() []Host {
	hosts := append([]Host{}, s.hosts...)
	sort.SliceStable(hosts, func(i, j int) bool {
		return better(hosts[i], hosts[j])
	})
	return hosts
}

func (s *Selector) setActive(host *Host) {
	s.activeLock.Lock()
	defer s.activeLock.Unlock()
	s.active = host
}
