package sync

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/cdnsync/pkg/cache"
	"github.com/sidkik/cdnsync/pkg/manifest"
)

func TestClassify(t *testing.T) {
	current := []byte("current")
	stale := []byte("stale")

	entries := []manifest.Entry{
		{Name: "engine/absent.dll", Size: 1, Blake3: hashOf(current)},
		{Name: "engine/current.dll", Size: 7, Blake3: strings.ToUpper(hashOf(current))},
		{Name: "engine/stale.dll", Size: 7, Blake3: hashOf(current)},
		{Name: "engine/sub/cached.dll", Size: 7, Blake3: hashOf(current)},
		{Name: "bonus/ignored.dll", Size: 7, Blake3: hashOf(current)},
		{Name: "engine/../escape.dll", Size: 7, Blake3: hashOf(current)},
	}

	tests := []struct {
		name           string
		force          bool
		cached         cache.Hashes
		expUpToDate    []string
		expToDownload  []string
		expCachedAfter cache.Hashes
	}{
		{
			name:          "EmptyCache",
			cached:        cache.Hashes{},
			expUpToDate:   []string{"current.dll"},
			expToDownload: []string{"absent.dll", "stale.dll", "sub/cached.dll"},
			expCachedAfter: cache.Hashes{
				"current.dll": hashOf(current),
			},
		},
		{
			name: "TrustsCache",
			cached: cache.Hashes{
				"sub/cached.dll": hashOf(current),
			},
			expUpToDate:   []string{"current.dll", "sub/cached.dll"},
			expToDownload: []string{"absent.dll", "stale.dll"},
			expCachedAfter: cache.Hashes{
				"current.dll":    hashOf(current),
				"sub/cached.dll": hashOf(current),
			},
		},
		{
			name:  "ForceIgnoresCache",
			force: true,
			cached: cache.Hashes{
				"sub/cached.dll": hashOf(current),
				"stale.dll":      hashOf(current),
			},
			expUpToDate:   []string{"current.dll"},
			expToDownload: []string{"absent.dll", "stale.dll", "sub/cached.dll"},
			expCachedAfter: cache.Hashes{
				"current.dll": hashOf(current),
			},
		},
		{
			name: "StaleCacheEntry",
			cached: cache.Hashes{
				"current.dll": hashOf(stale),
			},
			expUpToDate:    nil,
			expToDownload:  []string{"absent.dll", "current.dll", "stale.dll", "sub/cached.dll"},
			expCachedAfter: cache.Hashes{},
		},
		{
			name: "AbsentFileWithCacheEntry",
			cached: cache.Hashes{
				"absent.dll": hashOf(current),
			},
			expUpToDate:   []string{"current.dll"},
			expToDownload: []string{"absent.dll", "stale.dll", "sub/cached.dll"},
			expCachedAfter: cache.Hashes{
				"current.dll": hashOf(current),
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/game/current.dll", current, 0644))
			require.NoError(t, afero.WriteFile(fs, "/game/stale.dll", stale, 0644))
			require.NoError(t, afero.WriteFile(fs, "/game/sub/cached.dll", stale, 0644))
			require.NoError(t, afero.WriteFile(fs, "/escape.dll", current, 0644))

			upToDate, toDownload := Classifier{
				Dir:    "/game",
				Hashes: test.cached,
				Force:  test.force,
			}.Classify(entries, "engine")

			assert.Equal(t, test.expUpToDate, relativePaths(upToDate))
			assert.Equal(t, test.expToDownload, relativePaths(toDownload))
			assert.Equal(t, test.expCachedAfter, test.cached)
		})
	}
}

func TestClassifyDestination(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, toDownload := Classifier{Dir: "/game", Hashes: cache.Hashes{}}.Classify(
		[]manifest.Entry{{Name: "engine/bin/a.exe", Size: 10, Blake3: "ab"}}, "engine")

	require.Len(t, toDownload, 1)
	assert.Equal(t, "bin/a.exe", toDownload[0].RelativePath)
	assert.Equal(t, "/game/bin/a.exe", toDownload[0].Destination)
	assert.Equal(t, "engine/bin/a.exe", toDownload[0].Entry.Name)
}

func relativePaths(tasks []Task) (paths []string) {
	for _, task := range tasks {
		paths = append(paths, task.RelativePath)
	}
	return paths
}
