package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadService stores incoming images on disk before they are handed to the
// worker service.
type UploadService struct {
	uploadDir string
}

func NewUploadService(uploadDir string) *UploadService {
	return &UploadService{uploadDir: uploadDir}
}

// Save writes the upload under a generated name and returns the stored path.
// The client-supplied filename is kept only for display; it never becomes
// part of the storage path.
func (s *UploadService) Save(file io.Reader, originalFilename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalFilename))
	storedName := uuid.New().String() + ext
	storedPath := filepath.Join(s.uploadDir, storedName)

	out, err := os.Create(storedPath)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(storedPath)
		return "", fmt.Errorf("writing upload: %w", err)
	}

	return storedPath, nil
}
