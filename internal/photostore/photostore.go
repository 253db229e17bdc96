// Package photostore persists enrollment snapshots on disk.
package photostore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes snapshot images into a directory. File names combine the
// identity ID with a UUID so repeated captures never collide.
type Store struct {
	dir string
}

// New creates the snapshot directory if needed and returns a store for it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("photo directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating photo directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes image data for an identity and returns the stored path.
func (s *Store) Save(identityID string, imageData []byte) (string, error) {
	name := fmt.Sprintf("%s_%s.jpg", sanitizeID(identityID), uuid.NewString())
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, imageData, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes a stored snapshot; used to clean up when enrollment fails
// after the image was written.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot %s: %w", path, err)
	}
	return nil
}

// sanitizeID keeps only characters safe for file names.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)
}
