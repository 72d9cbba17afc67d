package sync

import (
	"encoding/hex"
	"io"

	"github.com/spf13/afero"
	"lukechampine.com/blake3"

	"github.com/sidkik/cdnsync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// HashFile returns the lowercase hex encoded BLAKE3-256 hash of the file at
// the given path.
func HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
