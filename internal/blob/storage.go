// Package blob stores uploaded media objects under opaque keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
)

// Object describes a stored blob.
type Object struct {
	// Key is the storage key the object was written under.
	Key string
	// Location is the URL path clients fetch the object from.
	Location string
}

// Storage persists uploaded objects.
// Keys are slash-separated paths like "tours/tour-abc/cover.jpg".
type Storage interface {
	// Upload writes data under key, replacing any existing object.
	Upload(ctx context.Context, key string, data []byte) (Object, error)
	// Get reads an object back.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes one object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// FS is a filesystem-backed Storage.
// Thread-safe for concurrent operations.
type FS struct {
	basePath string
	urlBase  string
	mu       sync.RWMutex // Protects file operations
}

// NewFS creates a Storage rooted at basePath. Objects are served under
// urlBase (e.g. "/media"), which becomes the prefix of every Location.
func NewFS(basePath, urlBase string) (*FS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &FS{
		basePath: basePath,
		urlBase:  strings.TrimRight(urlBase, "/"),
	}, nil
}

// Upload writes data under key, creating parent directories as needed.
func (s *FS) Upload(ctx context.Context, key string, data []byte) (Object, error) {
	if err := checkContext(ctx); err != nil {
		return Object{}, err
	}
	path, err := s.path(key)
	if err != nil {
		return Object{}, err
	}
	if len(data) == 0 {
		return Object{}, fmt.Errorf("object data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create object directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("failed to write object: %w", err)
	}

	return Object{
		Key:      key,
		Location: s.urlBase + "/" + key,
	}, nil
}

// Get reads an object back.
func (s *FS) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.NotFoundf("object %s not found", key)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	return data, nil
}

// Delete removes one object.
func (s *FS) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			// Already deleted, not an error.
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// DeletePrefix removes every object whose key starts with prefix.
// Used when a record is deleted and all of its media should go with it.
func (s *FS) DeletePrefix(ctx context.Context, prefix string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	root, err := s.path(prefix)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}
	return nil
}

// path maps a key to a filesystem path, rejecting traversal attempts.
func (s *FS) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}

// checkContext reports storage deadline overruns with the shared
// dependency-timeout error so handlers answer uniformly.
func checkContext(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return domainerrors.ErrDependencyTimeout
	default:
		return err
	}
}
