package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func TestFindDatasetFiles(t *testing.T) {
	tests := []struct {
		name          string
		files         []string
		expectedCount int
		description   string
	}{
		{
			name:          "only dataset files",
			files:         []string{"permits1.csv", "permits2.xlsx", "permits3.CSV"},
			expectedCount: 3,
			description:   "Should find dataset files regardless of extension case",
		},
		{
			name:          "mixed file types",
			files:         []string{"permits.csv", "notes.txt", "archive.xlsx", "report.pdf"},
			expectedCount: 2,
			description:   "Should find only dataset files",
		},
		{
			name:          "Excel lock files skipped",
			files:         []string{"permits.xlsx", "~$permits.xlsx"},
			expectedCount: 1,
			description:   "Should skip Excel lock files",
		},
		{
			name:          "no dataset files",
			files:         []string{"readme.md", "notes.txt"},
			expectedCount: 0,
			description:   "Should find no dataset files",
		},
		{
			name:          "empty directory",
			files:         []string{},
			expectedCount: 0,
			description:   "Should handle empty directory",
		},
		{
			name:          "legacy xls not recognized",
			files:         []string{"permits.xls"},
			expectedCount: 0,
			description:   "Only .csv and .xlsx are dataset extensions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			discovery := NewDiscovery(tmpDir)

			testDir := "input"
			fullTestDir := filepath.Join(tmpDir, testDir)
			require.NoError(t, os.MkdirAll(fullTestDir, 0755))

			// Create test files with different modification times
			for i, filename := range tt.files {
				filePath := filepath.Join(fullTestDir, filename)
				require.NoError(t, os.WriteFile(filePath, []byte("test content"), 0644))

				modTime := time.Now().Add(time.Duration(i) * time.Minute)
				require.NoError(t, os.Chtimes(filePath, modTime, modTime))
			}

			files, err := discovery.FindDatasetFiles(testDir)
			assert.NoError(t, err, tt.description)
			assert.Equal(t, tt.expectedCount, len(files), tt.description)

			// Verify files are sorted by modification time (oldest first)
			for i := 1; i < len(files); i++ {
				assert.False(t, files[i].ModTime.Before(files[i-1].ModTime),
					"Files should be sorted by modification time")
			}

			// Verify file properties
			for _, file := range files {
				assert.NotEmpty(t, file.Name)
				assert.NotEmpty(t, file.Path)
				assert.Greater(t, file.Size, int64(0))
				assert.False(t, file.ModTime.IsZero())
			}
		})
	}
}

func TestFindDatasetFiles_AbsoluteDir(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "permits.csv"), []byte("data"), 0644))

	// basePath is ignored when the directory is absolute
	discovery := NewDiscovery("/nonexistent/base")
	files, err := discovery.FindDatasetFiles(tmpDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFindDatasetFiles_MissingDirectory(t *testing.T) {
	discovery := NewDiscovery(t.TempDir())

	_, err := discovery.FindDatasetFiles("does_not_exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read directory")
}

func TestFindDatasetFiles_SkipsSubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "archive.csv"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "permits.csv"), []byte("data"), 0644))

	discovery := NewDiscovery(tmpDir)
	files, err := discovery.FindDatasetFiles(tmpDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "permits.csv", files[0].Name)
}

func TestLatestDataset(t *testing.T) {
	tmpDir := t.TempDir()
	discovery := NewDiscovery(tmpDir)

	names := []string{"permits_jan.csv", "permits_feb.xlsx", "permits_mar.csv"}
	for i, name := range names {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

		modTime := time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}

	latest, ok, err := discovery.LatestDataset(tmpDir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "permits_mar.csv", latest.Name)
	assert.Equal(t, filepath.Join(tmpDir, "permits_mar.csv"), latest.Path)
}

func TestLatestDataset_EmptyDirectory(t *testing.T) {
	discovery := NewDiscovery(t.TempDir())

	_, ok, err := discovery.LatestDataset(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestDataset_MissingDirectory(t *testing.T) {
	discovery := NewDiscovery(t.TempDir())

	_, ok, err := discovery.LatestDataset("missing")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestIsDatasetFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{"csv lowercase", "permits.csv", true},
		{"csv uppercase", "PERMITS.CSV", true},
		{"xlsx", "permits.xlsx", true},
		{"xlsx mixed case", "Permits.XlsX", true},
		{"legacy xls", "permits.xls", false},
		{"text file", "permits.txt", false},
		{"no extension", "permits", false},
		{"excel lock file", "~$permits.xlsx", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isDatasetFile(tt.filename))
		})
	}
}
