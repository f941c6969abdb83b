package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"permitpulse/internal/config"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery locates permit dataset files on disk
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative directories
// are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindDatasetFiles finds all permit dataset files in the specified
// directory, sorted by modification time (oldest first). Excel lock files
// (~$...) are skipped.
func (d *Discovery) FindDatasetFiles(dir string) ([]FileInfo, error) {
	// If dir is already absolute, use it directly
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !isDatasetFile(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Sort by modification time (oldest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// LatestDataset returns the most recently modified dataset file in the
// specified directory. The boolean is false when the directory holds no
// dataset files.
func (d *Discovery) LatestDataset(dir string) (FileInfo, bool, error) {
	files, err := d.FindDatasetFiles(dir)
	if err != nil {
		return FileInfo{}, false, err
	}
	if len(files) == 0 {
		return FileInfo{}, false, nil
	}
	return files[len(files)-1], true, nil
}

// isDatasetFile reports whether name carries a recognized dataset
// extension. Excel lock files are never dataset files.
func isDatasetFile(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range config.DatasetExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}
