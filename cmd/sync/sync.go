package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cdnsync/cmd/util"
	"github.com/sidkik/cdnsync/pkg/cache"
	"github.com/sidkik/cdnsync/pkg/cdn"
	"github.com/sidkik/cdnsync/pkg/config"
	"github.com/sidkik/cdnsync/pkg/errors"
	"github.com/sidkik/cdnsync/pkg/logging"
	"github.com/sidkik/cdnsync/pkg/manifest"
	cdnsync "github.com/sidkik/cdnsync/pkg/sync"
)

// Mocked out for unit testing.
var (
	stdout              io.Writer = os.Stdout
	parseUserConfig               = config.ParseUser
	getWorkingDirectory           = os.Getwd
	newPromptPolicy               = func() cdnsync.RetryPolicy { return util.NewPromptPolicy() }
)

type options struct {
	path       string
	cdnURL     string
	hosts      []string
	groups     []string
	bonus      bool
	force      bool
	yes        bool
	maxRetries int
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download missing or outdated files from the CDN",
		Long: "Bring the target directory up to date with the files published " +
			"by the CDN.\n\n" +
			"The fastest CDN host is picked automatically unless --cdn-url is " +
			"set. Files that already match the CDN are not downloaded again.",
		Run: func(cmd *cobra.Command, _ []string) {
			userConfig, err := parseUserConfig()
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "parse user config"))
			}

			cfg := mergeFlags(cmd, userConfig, opts).WithDefaults()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := run(ctx, cfg, opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", "",
		"The directory to sync into. Defaults to the configured path, "+
			"or the current directory.")
	cmd.Flags().StringVar(&opts.cdnURL, "cdn-url", "",
		"Download from this CDN instead of rating the candidate hosts.")
	cmd.Flags().StringSliceVar(&opts.hosts, "host", nil,
		"A candidate CDN host to rate. Can be repeated.")
	cmd.Flags().StringSliceVarP(&opts.groups, "group", "g", nil,
		"A directory group to sync. Can be repeated.")
	cmd.Flags().BoolVar(&opts.bonus, "bonus", false,
		"Also sync the bonus groups.")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false,
		"Rehash every local file rather than trusting the hash cache.")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false,
		"Retry failed downloads without prompting.")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 3,
		"The number of times each file is retried when --yes is set.")
	return cmd
}

// mergeFlags overrides the user config with the flags that were explicitly
// set.
func mergeFlags(cmd *cobra.Command, cfg config.User, opts options) config.User {
	flags := cmd.Flags()
	if flags.Changed("path") {
		cfg.Path = opts.path
	}
	if flags.Changed("cdn-url") {
		cfg.CDNURL = opts.cdnURL
	}
	if flags.Changed("host") {
		cfg.Hosts = opts.hosts
	}
	if flags.Changed("group") {
		cfg.Groups = opts.groups
	}
	if flags.Changed("bonus") {
		cfg.DownloadBonus = opts.bonus
	}
	return cfg
}

func run(ctx context.Context, cfg config.User, opts options) error {
	dir := cfg.Path
	if dir == "" {
		wd, err := getWorkingDirectory()
		if err != nil {
			return errors.WithContext(err, "get working directory")
		}
		dir = wd
	}

	if hook, err := logging.NewFileHook(dir); err == nil {
		defer hook.Close()
		hook.Install(log.StandardLogger(), log.GetLevel())
	} else {
		log.WithError(err).Warn("Failed to open log file")
	}

	log.WithFields(log.Fields{
		"path":   dir,
		"groups": cfg.SyncedGroups(),
		"force":  opts.force,
	}).Debug("Starting sync")

	origin, err := util.SelectOrigin(ctx, cfg.CDNURL, cfg.Hosts)
	if err != nil {
		return errors.WithContext(err, "select CDN")
	}

	client := cdn.NewClient()
	entries, err := manifest.Fetch(ctx, client, origin)
	if err != nil {
		return errors.WithContext(err, "fetch manifest")
	}

	var policy cdnsync.RetryPolicy = cdnsync.NewBoundedRetries(opts.maxRetries)
	if !opts.yes {
		policy = newPromptPolicy()
	}

	hashes := cache.Load(dir)
	reporter := util.NewTerminalReporter(stdout)
	cleaner := cdnsync.Cleaner{Dir: dir, Hashes: hashes, Reporter: reporter}
	cleaner.RemoveLegacyFiles(cdnsync.LegacyFiles)
	cleaner.Rename(cfg.Rename)

	syncer := &cdnsync.Syncer{
		Client:             client,
		Origin:             origin,
		Dir:                dir,
		Hashes:             hashes,
		Force:              opts.force,
		Policy:             policy,
		Reporter:           reporter,
		ExemptSuffixes:     cfg.ExemptSuffixes,
		ExecutableSuffixes: cfg.ExecutableSuffixes,
	}

	var skipped []string
	var downloaded int
	for _, group := range cfg.SyncedGroups() {
		res, err := syncer.SyncGroup(ctx, entries, group)
		skipped = append(skipped, res.Skipped...)
		downloaded += len(res.Downloaded)
		if err != nil {
			// Keep the hashes of the files that were verified before the
			// failure, so that they aren't rehashed on the next run.
			if saveErr := cache.Save(dir, hashes); saveErr != nil {
				log.WithError(saveErr).Warn("Failed to save hash cache")
			}
			return errors.WithContext(err, fmt.Sprintf("sync %s", group))
		}
	}

	cleaner.Delete(cfg.Delete)

	if err := cache.Save(dir, hashes); err != nil {
		return errors.WithContext(err, "save hash cache")
	}

	if len(skipped) != 0 {
		return errors.NewFriendlyError("Sync completed with %d unverified "+
			"files. They were downloaded, but don't match the CDN:\n\t%s\n"+
			"Run `cdnsync sync` again later to retry them.",
			len(skipped), strings.Join(skipped, "\n\t"))
	}

	fmt.Fprintf(stdout, "%sSync complete. Downloaded %d files.\n",
		util.Prefix(util.StatusInfo), downloaded)
	return nil
}
