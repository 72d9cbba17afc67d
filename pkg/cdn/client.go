package cdn

import (
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sidkik/cdnsync/pkg/version"
)

// The probe transport fails fast so that dead hosts don't hold up the rating
// pass. The overall probe deadline is set per request.
func newProbeTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     10 * time.Second,
	}
}

// Downloads have no overall deadline because files can be large. Stalls are
// caught by the dial, handshake and header timeouts instead.
func newDownloadTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
	}
}

// NewProbeClient returns the HTTP client used for rating hosts.
func NewProbeClient() *resty.Client {
	return resty.NewWithClient(&http.Client{Transport: newProbeTransport()}).
		SetHeader("User-Agent", version.UserAgent())
}

// NewClient returns the HTTP client used for the manifest and file downloads.
func NewClient() *resty.Client {
	return resty.NewWithClient(&http.Client{Transport: newDownloadTransport()}).
		SetHeader("User-Agent", version.UserAgent())
}
