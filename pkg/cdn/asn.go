package cdn

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/sidkik/cdnsync/pkg/errors"
)

// Mocked out for unit testing.
var ipInfoEndpoint = "https://ipinfo.io/json"

// The `org` field looks like "AS3320 Deutsche Telekom AG".
var orgASNRegex = regexp.MustCompile(`^AS(\d+)\b`)

type ipInfo struct {
	IP  string `json:"ip"`
	Org string `json:"org"`
}

// LookupASN returns the autonomous system number of the network the caller is
// connecting from.
func LookupASN(ctx context.Context, client *resty.Client) (uint32, error) {
	var info ipInfo
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(&info).
		Get(ipInfoEndpoint)
	if err != nil {
		return 0, errors.WithContext(err, "get")
	}
	if resp.IsError() {
		return 0, fmt.Errorf("server responded with %s", resp.Status())
	}

	return parseOrgASN(info.Org)
}

func parseOrgASN(org string) (uint32, error) {
	m := orgASNRegex.FindStringSubmatch(org)
	if m == nil {
		return 0, fmt.Errorf("no ASN in organization %q", org)
	}

	asn, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, errors.WithContext(err, "parse ASN")
	}
	return uint32(asn), nil
}
