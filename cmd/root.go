package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/cdnsync/cmd/config"
	"github.com/sidkik/cdnsync/cmd/rate"
	syncCmd "github.com/sidkik/cdnsync/cmd/sync"
	"github.com/sidkik/cdnsync/cmd/util"
	"github.com/sidkik/cdnsync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "CDNSYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:   "cdnsync",
		Short: "Keep a directory in sync with a CDN",
		Long: "cdnsync downloads the files published by a CDN into a local " +
			"directory.\nIt picks the fastest of several CDN hosts, and only " +
			"downloads files that are missing or changed.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		rate.New(),
		syncCmd.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
