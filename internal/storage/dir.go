// Package storage writes generated creatives to a local directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/atharvad999/adcreative/pkg/zip"
)

// DirStore exports assets as individual files under a root directory.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure directory: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) Root() string { return s.root }

// Export writes each asset and returns the paths written, relative to the
// root. Existing files are never overwritten; a numeric suffix is added.
func (s *DirStore) Export(ctx context.Context, assets []zip.Asset) ([]string, error) {
	written := make([]string, 0, len(assets))
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		key, err := sanitizeKey(asset.Name())
		if err != nil {
			return written, err
		}
		name, err := s.create(key, asset.Data)
		if err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func (s *DirStore) create(key string, data []byte) (string, error) {
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	for n := 1; ; n++ {
		candidate := key
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		full := filepath.Join(s.root, filepath.FromSlash(candidate))
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: create %s: %w", candidate, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("storage: write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("storage: close %s: %w", candidate, err)
		}
		return candidate, nil
	}
}

// sanitizeKey keeps names inside the root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(key), "\\", "/"), "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/") {
		return "", fmt.Errorf("storage: invalid name %q", key)
	}
	return cleaned, nil
}
