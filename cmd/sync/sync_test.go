package sync

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"

	"github.com/sidkik/cdnsync/cmd/util"
	"github.com/sidkik/cdnsync/pkg/cache"
	"github.com/sidkik/cdnsync/pkg/config"
	"github.com/sidkik/cdnsync/pkg/errors"
	"github.com/sidkik/cdnsync/pkg/manifest"
	cdnsync "github.com/sidkik/cdnsync/pkg/sync"
)

func hashOf(contents []byte) string {
	sum := blake3.Sum256(contents)
	return hex.EncodeToString(sum[:])
}

type mockCDN struct {
	files map[string][]byte

	// corrupt files are served with different contents than the manifest
	// advertises.
	corrupt map[string]bool

	lock     gosync.Mutex
	requests []string
}

func (cdn *mockCDN) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cdn.lock.Lock()
	cdn.requests = append(cdn.requests, r.URL.Path)
	cdn.lock.Unlock()

	name := r.URL.Path[1:]
	if name == manifest.FileName {
		var entries []manifest.Entry
		for name, contents := range cdn.files {
			entries = append(entries, manifest.Entry{
				Name:   name,
				Size:   int64(len(contents)),
				Blake3: hashOf(contents),
			})
		}
		json.NewEncoder(w).Encode(entries)
		return
	}

	contents, ok := cdn.files[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if cdn.corrupt[name] {
		contents = append([]byte("corrupt"), contents...)
	}
	w.Write(contents)
}

func (cdn *mockCDN) requestCount() int {
	cdn.lock.Lock()
	defer cdn.lock.Unlock()
	return len(cdn.requests)
}

func TestRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "cdnsync-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cdn := &mockCDN{
		files: map[string][]byte{
			"iw4x/iw4x.exe":          make([]byte, 10),
			"iw4x/zone/patch.ff":     []byte("patch"),
			"iw4x-dlc/maps/dlc1.iwd": []byte("dlc"),
		},
	}
	server := httptest.NewServer(cdn)
	defer server.Close()

	var out bytes.Buffer
	stdout = &out

	cfg := config.User{
		Path:        dir,
		CDNURL:      server.URL,
		Groups:      []string{"iw4x"},
		BonusGroups: []string{"iw4x-dlc"},
	}.WithDefaults()
	opts := options{yes: true, maxRetries: 1}

	require.NoError(t, run(context.Background(), cfg, opts))
	assert.Contains(t, out.String(), "Sync complete. Downloaded 2 files.")

	contents, err := ioutil.ReadFile(filepath.Join(dir, "iw4x.exe"))
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), contents)

	contents, err = ioutil.ReadFile(filepath.Join(dir, "zone", "patch.ff"))
	require.NoError(t, err)
	assert.Equal(t, []byte("patch"), contents)

	_, err = os.Stat(filepath.Join(dir, "maps", "dlc1.iwd"))
	assert.True(t, os.IsNotExist(err), "bonus content shouldn't be synced")

	assert.Equal(t, cache.Hashes{
		"iw4x.exe":      hashOf(make([]byte, 10)),
		"zone/patch.ff": hashOf([]byte("patch")),
	}, cache.Load(dir))

	// The second sync only needs the manifest.
	out.Reset()
	before := cdn.requestCount()
	cfg.DownloadBonus = true
	require.NoError(t, run(context.Background(), cfg, opts))
	assert.Contains(t, out.String(), "Sync complete. Downloaded 1 files.")
	assert.Equal(t, before+2, cdn.requestCount())

	_, err = os.Stat(filepath.Join(dir, "maps", "dlc1.iwd"))
	assert.NoError(t, err)
}

func TestRunCleanup(t *testing.T) {
	dir, err := ioutil.TempDir("", "cdnsync-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ".sha-sums"), []byte("old"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "iw4x.dll"), []byte("dll"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zone", "legacy"), 0755))
	require.NoError(t, ioutil.WriteFile(
		filepath.Join(dir, "zone", "legacy", "old.ff"), []byte("ff"), 0644))

	server := httptest.NewServer(&mockCDN{
		files: map[string][]byte{"iw4x/iw4x.exe": make([]byte, 10)},
	})
	defer server.Close()

	var out bytes.Buffer
	stdout = &out

	cfg := config.User{
		Path:   dir,
		CDNURL: server.URL,
		Groups: []string{"iw4x"},
		Rename: []cdnsync.Rename{{From: "iw4x.dll", To: "iw4x.dll.bak"}},
		Delete: []string{"zone/legacy"},
	}.WithDefaults()
	require.NoError(t, run(context.Background(), cfg, options{yes: true, maxRetries: 1}))

	assert.Contains(t, out.String(), util.Prefix(util.StatusRenamed)+"iw4x.dll -> iw4x.dll.bak\n")
	assert.Contains(t, out.String(), util.Prefix(util.StatusRemoved)+"zone/legacy\n")

	for path, expExists := range map[string]bool{
		".sha-sums":    false,
		"iw4x.dll":     false,
		"iw4x.dll.bak": true,
		"zone/legacy":  false,
		"iw4x.exe":     true,
	} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(path)))
		assert.Equal(t, expExists, err == nil, path)
	}
}

func TestRunUnverifiedFiles(t *testing.T) {
	dir, err := ioutil.TempDir("", "cdnsync-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cdn := &mockCDN{
		files: map[string][]byte{
			"iw4x/good.dll": []byte("good"),
			"iw4x/bad.dll":  []byte("bad"),
		},
		corrupt: map[string]bool{"iw4x/bad.dll": true},
	}
	server := httptest.NewServer(cdn)
	defer server.Close()
	stdout = ioutil.Discard

	cfg := config.User{
		Path:   dir,
		CDNURL: server.URL,
		Groups: []string{"iw4x"},
	}.WithDefaults()

	err = run(context.Background(), cfg, options{yes: true, maxRetries: 2})
	msg, ok := errors.GetFriendlyMessage(err)
	require.True(t, ok)
	assert.Contains(t, msg, "1 unverified files")
	assert.Contains(t, msg, "bad.dll")

	// The verified file is still cached.
	assert.Equal(t, cache.Hashes{"good.dll": hashOf([]byte("good"))}, cache.Load(dir))
}

func TestRunManifestUnavailable(t *testing.T) {
	dir, err := ioutil.TempDir("", "cdnsync-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	cfg := config.User{Path: dir, CDNURL: server.URL}.WithDefaults()
	err = run(context.Background(), cfg, options{yes: true})
	assert.IsType(t, errors.ManifestUnavailableError{}, errors.RootCause(err))
}

func TestMergeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("path", "", "")
	cmd.Flags().String("cdn-url", "", "")
	cmd.Flags().StringSlice("host", nil, "")
	cmd.Flags().StringSlice("group", nil, "")
	cmd.Flags().Bool("bonus", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--path", "/flag", "--bonus=false"}))

	cfg := config.User{
		Path:          "/config",
		CDNURL:        "https://mirror.example.com",
		Groups:        []string{"iw4x"},
		DownloadBonus: true,
	}
	merged := mergeFlags(cmd, cfg, options{path: "/flag", bonus: false})
	assert.Equal(t, config.User{
		Path:          "/flag",
		CDNURL:        "https://mirror.example.com",
		Groups:        []string{"iw4x"},
		DownloadBonus: false,
	}, merged)
}
