package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/cdnsync/pkg/errors"
)

var testManifest = []Entry{
	{Name: "engine/a.exe", Size: 10, Blake3: "AB"},
	{Name: "engine/data/b.bin", Size: 20, Blake3: "cd"},
	{Name: "bonus/c.ff", Size: 30, Blake3: "ef"},
	{Name: "engineering/d.txt", Size: 40, Blake3: "01"},
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		expEntries []Entry
		expError   bool
	}{
		{
			name:   "Valid",
			status: http.StatusOK,
			body: `[
				{"name": "engine/a.exe", "size": 10, "blake3": "AB"},
				{"name": "engine/data/b.bin", "size": 20, "blake3": "cd"}
			]`,
			expEntries: testManifest[:2],
		},
		{
			name:       "Empty",
			status:     http.StatusOK,
			body:       `[]`,
			expEntries: []Entry{},
		},
		{
			name:     "Malformed",
			status:   http.StatusOK,
			body:     `{"name": "engine/a.exe"`,
			expError: true,
		},
		{
			name:     "NotFound",
			status:   http.StatusNotFound,
			body:     `[]`,
			expError: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/files.json", r.URL.Path)
				w.WriteHeader(test.status)
				_, err := w.Write([]byte(test.body))
				assert.NoError(t, err)
			}))
			defer ts.Close()

			entries, err := Fetch(context.Background(), resty.New(), ts.URL+"/")
			if test.expError {
				assert.Error(t, err)
				_, ok := err.(errors.ManifestUnavailableError)
				assert.True(t, ok)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expEntries, entries)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := Fetch(context.Background(), resty.New(), url)
	_, ok := err.(errors.ManifestUnavailableError)
	assert.True(t, ok)
}

func TestGroup(t *testing.T) {
	engine := Group(testManifest, "engine")
	assert.Equal(t, testManifest[:2], engine)
	assert.Equal(t, int64(30), TotalSize(engine))

	assert.Equal(t, testManifest[2:3], Group(testManifest, "bonus"))
	assert.Empty(t, Group(testManifest, "missing"))

	rel, ok := testManifest[1].RelativePath("engine")
	assert.True(t, ok)
	assert.Equal(t, "data/b.bin", rel)

	_, ok = testManifest[3].RelativePath("engine")
	assert.False(t, ok)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/files.json", URL("https://cdn.example.com/", FileName))
	assert.Equal(t, "https://cdn.example.com/engine/a.exe", URL("https://cdn.example.com", "/engine/a.exe"))
}
