package filestore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
)

// ArtifactDir writes pairing artifacts into a local directory, replacing any
// previous file of the same name.
type ArtifactDir struct {
	dir string
}

func NewArtifactDir(dir string) *ArtifactDir {
	return &ArtifactDir{dir: dir}
}

// Upload stores r under key and returns the file path. contentType is unused.
func (d *ArtifactDir) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	path := filepath.Join(d.dir, filepath.FromSlash(key))
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", key, err)
	}
	return path, nil
}
