package utils

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// FileDigest returns the hex encoded BLAKE3 digest of the file at path.
// It identifies the classifier artifact a run was made with.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
