// Package local stores blobs on the local filesystem, serving them through a
// static file route under the configured public base URL.
package local

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fabrichouse/inventory-backend/pkg/config"
)

type Store struct {
	baseDir    string
	publicBase string
}

func New(cfg config.StorageConfig) (*Store, error) {
	if cfg.LocalDir == "" {
		return nil, fmt.Errorf("local storage directory is required")
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir %q: %w", cfg.LocalDir, err)
	}
	publicBase := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = "/uploads"
	}
	return &Store{baseDir: cfg.LocalDir, publicBase: publicBase}, nil
}

func (s *Store) Put(ctx context.Context, data []byte, folder, filename string) (string, error) {
	rel, err := s.relPath(folder, filename)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating blob folder: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	return s.publicBase + "/" + filepath.ToSlash(rel), nil
}

func (s *Store) Fetch(ctx context.Context, url string) ([]byte, error) {
	full, err := s.resolve(url)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading blob %q: %w", url, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	full, err := s.resolve(url)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob %q: %w", url, err)
	}
	return nil
}

func (s *Store) relPath(folder, filename string) (string, error) {
	cleanFolder := path.Clean("/" + folder)
	cleanName := path.Base(filename)
	if cleanName == "" || cleanName == "." || cleanName == "/" {
		return "", fmt.Errorf("invalid blob filename %q", filename)
	}
	return filepath.FromSlash(strings.TrimPrefix(cleanFolder, "/") + "/" + cleanName), nil
}

func (s *Store) resolve(url string) (string, error) {
	if !strings.HasPrefix(url, s.publicBase+"/") {
		return "", fmt.Errorf("url %q is not served by local storage", url)
	}
	rel := path.Clean(strings.TrimPrefix(url, s.publicBase+"/"))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("url %q escapes the storage root", url)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(rel)), nil
}
