package config

import (
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/cdnsync/pkg/cdn"
	"github.com/sidkik/cdnsync/pkg/errors"
	"github.com/sidkik/cdnsync/pkg/sync"
)

const (
	// UserConfigPath is the default path to the cdnsync user config.
	UserConfigPath = "~/.cdnsync.yaml"

	// InitialUserConfigVersion is the first version of the user config.
	// Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the version of the user config that's
	// understood by this binary.
	SupportedUserConfigVersion = "v1alpha1"
)

// parseErrTemplate is shown when the user config can't be parsed. The
// parser's message is passed on as is.
const parseErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

const versionErrTemplate = "The configuration file %q is incompatible " +
	"with this version of cdnsync.\n" +
	"Expected version %q, but got %q."

// DefaultGroups are the directory groups that are synced when none are
// configured.
var DefaultGroups = []string{"iw4x"}

// Mocked out for unit testing.
var (
	fs            = afero.NewOsFs()
	homedirExpand = homedir.Expand
)

// User contains the user's sync preferences. Flags passed on the command line
// take precedence over these values.
type User struct {
	Version string `json:"version,omitempty"`

	// Path is the directory to sync into.
	Path string `json:"path,omitempty"`

	// CDNURL pins the CDN host, and disables host rating.
	CDNURL string `json:"cdnURL,omitempty"`

	// Hosts are the candidate CDN hosts that are rated.
	Hosts []string `json:"hosts,omitempty"`

	Groups        []string `json:"groups,omitempty"`
	BonusGroups   []string `json:"bonusGroups,omitempty"`
	DownloadBonus bool     `json:"downloadBonus,omitempty"`

	ExemptSuffixes     []string `json:"exemptSuffixes,omitempty"`
	ExecutableSuffixes []string `json:"executableSuffixes,omitempty"`

	// Rename lists files that are moved before syncing, and Delete lists
	// files and directories that are removed after syncing. Both are
	// relative to Path.
	Rename []sync.Rename `json:"rename,omitempty"`
	Delete []string      `json:"delete,omitempty"`
}

// WithDefaults returns a copy of the config with defaults filled in for
// unset fields.
func (u User) WithDefaults() User {
	if len(u.Hosts) == 0 {
		u.Hosts = cdn.DefaultHosts
	}
	if len(u.Groups) == 0 {
		u.Groups = DefaultGroups
	}
	if u.ExemptSuffixes == nil {
		u.ExemptSuffixes = sync.DefaultExemptSuffixes
	}
	if u.ExecutableSuffixes == nil {
		u.ExecutableSuffixes = sync.DefaultExecutableSuffixes
	}
	return u
}

// SyncedGroups returns the directory groups to sync, in order.
func (u User) SyncedGroups() []string {
	groups := append([]string{}, u.Groups...)
	if u.DownloadBonus {
		groups = append(groups, u.BonusGroups...)
	}
	return groups
}

// ParseUser attempts to parse the User stored in the default path. If the
// file doesn't exist, an empty config is returned.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return User{Version: SupportedUserConfigVersion}, nil
		}
		return User{}, errors.WithContext(err, "read")
	}

	config, err := parseUser(path, configBytes)
	if err != nil {
		return User{}, errors.WithContext(err, "parse")
	}

	config.Path, err = homedirExpand(config.Path)
	if err != nil {
		return User{}, errors.WithContext(err, "expand sync path")
	}

	// Evaluate relative paths relative to the config path.
	if config.Path != "" && !filepath.IsAbs(config.Path) {
		config.Path = filepath.Join(filepath.Dir(path), config.Path)
	}
	return config, nil
}

func parseUser(path string, configBytes []byte) (User, error) {
	config := User{Version: InitialUserConfigVersion}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return User{}, errors.NewFriendlyError(parseErrTemplate, path, err)
	}

	if config.Version != SupportedUserConfigVersion {
		return User{}, errors.NewFriendlyError(versionErrTemplate,
			path, SupportedUserConfigVersion, config.Version)
	}

	// The strict unmarshal runs second so that version errors are reported
	// before errors about extra fields.
	if err := yaml.UnmarshalStrict(configBytes, &config, yaml.DisallowUnknownFields); err != nil {
		return User{}, errors.NewFriendlyError(parseErrTemplate, path, err)
	}
	return config, nil
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the path to the user's cdnsync configuration.
// This path is expanded, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
