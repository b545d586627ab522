package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DiskStore writes uploaded images to a local directory and returns the
// generated file name as an opaque reference.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	ref := uuid.New().String() + extensionFor(contentType)
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return ref, nil
}

// Open returns the stored bytes for a previously returned reference.
func (s *DiskStore) Open(ctx context.Context, ref string) ([]byte, error) {
	// Refs are generated server side, but never trust them as paths.
	if filepath.Base(ref) != ref {
		return nil, fmt.Errorf("invalid media reference %q", ref)
	}
	return os.ReadFile(filepath.Join(s.dir, ref))
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}
