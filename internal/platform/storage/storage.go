package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Service persists uploaded files under a root directory.
type Service struct {
	uploadsDir string
}

func New(root string) (*Service, error) {
	dir := filepath.Join(root, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Service{uploadsDir: dir}, nil
}

// SaveBytes writes raw bytes to a unique file and returns its path.
// The suffix keeps the original file extension so OCR backends can
// sniff the format.
func (s *Service) SaveBytes(data []byte, suffix string) (string, error) {
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + suffix
	path := filepath.Join(s.uploadsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Service) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
