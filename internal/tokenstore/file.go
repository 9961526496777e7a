// Package tokenstore persists the provider OAuth token pair on local disk.
package tokenstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned by Load when no token file exists yet.
var ErrNotFound = errors.New("token file not found")

// Pair is the access/refresh token pair issued by the provider.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// File stores a Pair as a JSON document. Every Save overwrites the whole document.
type File struct {
	path string
}

// NewFile constructs a File store rooted at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the token document.
func (f *File) Path() string {
	return f.path
}

// Load reads the stored pair.
func (f *File) Load() (Pair, error) {
	body, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pair{}, ErrNotFound
		}
		return Pair{}, fmt.Errorf("read token file: %w", err)
	}

	var pair Pair
	if err := json.Unmarshal(body, &pair); err != nil {
		return Pair{}, fmt.Errorf("decode token file %s: %w", f.path, err)
	}
	return pair, nil
}

// Save replaces the stored pair. The document is written to a sibling temp file and
// renamed into place so a crash never leaves a truncated token file behind.
func (f *File) Save(pair Pair) error {
	body, err := json.MarshalIndent(pair, "", "    ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(body, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
