package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"threadscope/models"
	"threadscope/utils"
)

// WriteDocument encodes doc to path. The document is written to a temporary
// file in the same directory and renamed into place, so readers never see
// a partial file.
func WriteDocument(path string, doc *models.Document, format utils.Format, indent int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()

	// Removes the temp file on every failure path; a no-op after rename
	defer os.Remove(tmpPath)

	if err := utils.EncodeDocument(tmp, doc, format, indent); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}

// ReadDocument decodes a document previously written by WriteDocument
func ReadDocument(path string, format utils.Format) (*models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	return utils.DecodeDocument(f, format)
}
