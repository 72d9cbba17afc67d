package util

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cdnsync/pkg/cdn"
	"github.com/sidkik/cdnsync/pkg/errors"
)

// Mocked out for unit testing.
var (
	lookupASN             = cdn.LookupASN
	newProber             = func() cdn.Prober { return cdn.NewProber(cdn.NewProbeClient()) }
	progressOut io.Writer = os.Stdout

	asnLookupTimeout = cdn.ProbeTimeout
)

// RateHosts probes and rates every host in `addresses`. If none of them
// respond within the initial timeout, they're rated once more with a longer
// timeout. The returned selector's active host is the best host.
func RateHosts(ctx context.Context, addresses []string) (*cdn.Selector, error) {
	if len(addresses) == 0 {
		return nil, errors.NewFriendlyError("No CDN hosts are configured. " +
			"Add hosts to the user config, or pass --cdn-url.")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, asnLookupTimeout)
	asn, err := lookupASN(lookupCtx, cdn.NewProbeClient())
	cancel()
	if err != nil {
		log.WithError(err).Debug("Failed to look up origin ASN. " +
			"Network specific penalties won't be applied.")
		asn = 0
	}

	selector := cdn.NewSelector(addresses, newProber(), cdn.NewRater())

	pp := NewProgressPrinter(progressOut, "Rating CDN hosts")
	go pp.Run()
	selector.RateAll(ctx, asn, true)
	if selector.AllUnreachable() && ctx.Err() == nil {
		log.Debug("No CDN host responded in time. Retrying with a longer timeout.")
		selector.RateAll(ctx, asn, false)
	}
	pp.Stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return selector, nil
}

// SelectOrigin returns the URL of the CDN host to sync from. If `override` is
// set, it's used as is without rating any hosts.
func SelectOrigin(ctx context.Context, override string, addresses []string) (string, error) {
	if override != "" {
		log.WithField("url", override).Debug("Using CDN override")
		return cdn.NewHost(override).URL(), nil
	}

	selector, err := RateHosts(ctx, addresses)
	if err != nil {
		return "", errors.WithContext(err, "rate hosts")
	}

	host, ok := selector.Active()
	if !ok || !host.Reachable() {
		return "", errors.NewFriendlyError("None of the CDN hosts could be "+
			"reached: %v.\nCheck your connection, or pick a CDN with --cdn-url.",
			addresses)
	}

	log.WithFields(log.Fields{
		"host":    host.Address,
		"score":   host.Score,
		"latency": host.Latency,
	}).Info("Selected CDN host")
	return host.URL(), nil
}
