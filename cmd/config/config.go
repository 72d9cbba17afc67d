package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cdnsync/cmd/util"
	"github.com/sidkik/cdnsync/pkg/config"
	"github.com/sidkik/cdnsync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseUserConfig               = config.ParseUser
	writeUserConfig               = config.WriteUser
	stat                          = os.Stat
	getWorkingDirectory           = os.Getwd
)

type options struct {
	path               string
	cdnURL             string
	hosts              []string
	groups             []string
	bonusGroups        []string
	downloadBonus      bool
	exemptSuffixes     []string
	executableSuffixes []string
}

// New creates a new `config` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the cdnsync user configuration",
		Long: "Write the user configuration to " + config.UserConfigPath + ".\n\n" +
			"Fields that aren't set with flags keep their current value. " +
			"The sync path is prompted for if it isn't set.",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := SetupConfig(cmd, opts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", "",
		"Set the directory to sync into. "+
			"Optional: If not set, `cdnsync config` will interactively prompt.")
	cmd.Flags().StringVar(&opts.cdnURL, "cdn-url", "",
		"Always download from this CDN rather than rating hosts. "+
			"Set to an empty string to enable rating again.")
	cmd.Flags().StringSliceVar(&opts.hosts, "host", nil,
		"Set the candidate CDN hosts.")
	cmd.Flags().StringSliceVarP(&opts.groups, "group", "g", nil,
		"Set the directory groups that are always synced.")
	cmd.Flags().StringSliceVar(&opts.bonusGroups, "bonus-group", nil,
		"Set the directory groups that are synced when bonus content is enabled.")
	cmd.Flags().BoolVar(&opts.downloadBonus, "bonus", false,
		"Enable syncing bonus content.")
	cmd.Flags().StringSliceVar(&opts.exemptSuffixes, "exempt-suffix", nil,
		"Set the file suffixes whose hashes aren't verified.")
	cmd.Flags().StringSliceVar(&opts.executableSuffixes, "executable-suffix", nil,
		"Set the file suffixes that are marked executable.")

	// Setup the commands for querying the contents of the user config.
	type getterSpec struct {
		use, short string
		fn         func(config.User) string
	}

	getters := []getterSpec{
		{
			use:   "get-path",
			short: "Get the configured sync directory",
			fn:    func(cfg config.User) string { return cfg.Path },
		},
		{
			use:   "get-cdn-url",
			short: "Get the configured CDN override",
			fn:    func(cfg config.User) string { return cfg.CDNURL },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseUserConfig()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig merges the flags into the current user config, prompting for
// the fields that are still required, and writes the result.
func SetupConfig(cmd *cobra.Command, opts options) error {
	cfg, err := generateConfig(cmd, opts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := config.GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "get user config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func generateConfig(cmd *cobra.Command, opts options) (config.User, error) {
	cfg, err := parseUserConfig()
	if err != nil {
		log.WithError(err).Debug("Failed to read current config")
		cfg = config.User{}
	}
	currPath := cfg.Path

	flags := cmd.Flags()
	if flags.Changed("cdn-url") {
		cfg.CDNURL = opts.cdnURL
	}
	if flags.Changed("host") {
		cfg.Hosts = opts.hosts
	}
	if flags.Changed("group") {
		cfg.Groups = opts.groups
	}
	if flags.Changed("bonus-group") {
		cfg.BonusGroups = opts.bonusGroups
	}
	if flags.Changed("bonus") {
		cfg.DownloadBonus = opts.downloadBonus
	}
	if flags.Changed("exempt-suffix") {
		cfg.ExemptSuffixes = opts.exemptSuffixes
	}
	if flags.Changed("executable-suffix") {
		cfg.ExecutableSuffixes = opts.executableSuffixes
	}

	if flags.Changed("path") {
		if msg, ok := pathValidationFn(opts.path); !ok {
			return config.User{}, errors.New(msg)
		}
		cfg.Path = opts.path
		return cfg, nil
	}

	var defaultPath string
	if wd, err := getWorkingDirectory(); err == nil {
		defaultPath = wd
	} else {
		log.WithError(err).Info("Failed to guess sync path")
	}

	for {
		resp, err := promptUser(
			"Enter the directory to keep in sync with the CDN.\n"+
				"It defaults to the current directory.",
			"Sync directory", defaultPath, currPath)
		if err != nil {
			return config.User{}, errors.WithContext(err, "read response")
		}

		if msg, ok := pathValidationFn(resp); !ok {
			fmt.Fprintln(stdout, msg)
			continue
		}

		cfg.Path = resp
		return cfg, nil
	}
}

// pathValidationFn checks that the sync path can be synced into. Paths that
// don't exist yet are allowed, since they're created by the sync.
func pathValidationFn(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "The sync directory is required.", false
	}

	info, err := stat(path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Sprintf("%s is a file. Please pick a directory.", path), false
	case err != nil && !os.IsNotExist(err):
		return fmt.Sprintf("Failed to access %s: %s", path, err), false
	}
	return "", true
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\r\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\r\n"), nil
}
