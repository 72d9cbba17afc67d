package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sidkik/cdnsync/pkg/version"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of cdnsync",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "cdnsync version: %s (%s/%s)\n",
				version.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
