package rate

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/sidkik/cdnsync/cmd/util"
	"github.com/sidkik/cdnsync/pkg/cdn"
	"github.com/sidkik/cdnsync/pkg/config"
	"github.com/sidkik/cdnsync/pkg/errors"
)

// Mocked out for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	rateHosts                 = util.RateHosts
)

// New creates a new `rate` command.
func New() *cobra.Command {
	var hosts []string
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Rate the candidate CDN hosts without syncing",
		Run: func(cmd *cobra.Command, _ []string) {
			userConfig, err := parseUserConfig()
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "parse user config"))
			}
			if cmd.Flags().Changed("host") {
				userConfig.Hosts = hosts
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := run(ctx, userConfig.WithDefaults().Hosts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringSliceVar(&hosts, "host", nil,
		"A candidate CDN host to rate. Can be repeated.")
	return cmd
}

func run(ctx context.Context, addresses []string) error {
	selector, err := rateHosts(ctx, addresses)
	if err != nil {
		return errors.WithContext(err, "rate hosts")
	}

	active, hasActive := selector.Active()
	fmt.Fprint(stdout, formatReport(selector.Hosts(), active, hasActive))
	return nil
}

func formatReport(hosts []cdn.Host, active cdn.Host, hasActive bool) string {
	table := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintln(table, "\tHOST\tSCORE\tLATENCY\tEDGE NETWORK")
	for _, host := range hosts {
		marker := ""
		if hasActive && host.Address == active.Address {
			marker = "*"
		}

		latency := "unreachable"
		if host.Latency != nil {
			latency = fmt.Sprintf("%dms", host.Latency.Milliseconds())
		}

		edge := host.EdgeNetwork
		if edge == "" {
			edge = "-"
		}

		fmt.Fprintf(table, "%s\t%s\t%d\t%s\t%s\n",
			marker, host.Address, host.Score, latency, edge)
	}
	return table.String()
}
