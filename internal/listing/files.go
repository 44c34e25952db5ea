package listing

import (
	"fmt"
	"path/filepath"

	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/book-expert/mediagen/internal/product"
)

const (
	listingFileFormat = "product_%s.json"
	rawFileFormat     = "product_%s_raw.txt"
	summaryFileName   = "summary.json"
)

// FileManager persists generated listings under one output directory.
type FileManager struct {
	outputDir string
}

// NewFileManager creates the output directory if needed.
func NewFileManager(outputDir string) (*FileManager, error) {
	err := fileutil.EnsureDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	return &FileManager{outputDir: outputDir}, nil
}

// OutputDir returns the directory files are written to.
func (m *FileManager) OutputDir() string {
	return m.outputDir
}

// SaveListing writes product_<id>.json.
func (m *FileManager) SaveListing(listing *ProductListing, id product.ID) (string, error) {
	path := m.path(listingFileFormat, id)

	err := fileutil.SaveJSON(path, listing)
	if err != nil {
		return "", err
	}

	return path, nil
}

// SaveRawResponse writes product_<id>_raw.txt.
func (m *FileManager) SaveRawResponse(response string, id product.ID) (string, error) {
	path := m.path(rawFileFormat, id)

	err := fileutil.SaveText(path, response)
	if err != nil {
		return "", err
	}

	return path, nil
}

// SaveSummary writes summary.json.
func (m *FileManager) SaveSummary(summary *Summary) (string, error) {
	path := filepath.Join(m.outputDir, summaryFileName)

	err := fileutil.SaveJSON(path, summary)
	if err != nil {
		return "", err
	}

	return path, nil
}

func (m *FileManager) path(format string, id product.ID) string {
	return filepath.Join(m.outputDir, fmt.Sprintf(format, fileutil.SanitizeFilename(id.String())))
}
