package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	RelPath string // slash-separated, relative to the directory searched
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	fs afero.Fs
}

// NewDiscovery creates a new file discovery instance over fs
func NewDiscovery(fs afero.Fs) *Discovery {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Discovery{fs: fs}
}

// FindFiles walks dir recursively and returns every regular file whose base
// name matches pattern, sorted by path so repeated runs see the same order.
// Office lock files ("~$...") and hidden files are skipped.
func (d *Discovery) FindFiles(dir, pattern string) ([]FileInfo, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	info, err := d.fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []FileInfo
	err = afero.Walk(d.fs, dir, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		name := fi.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			return nil
		}
		if ok, _ := filepath.Match(strings.ToLower(pattern), strings.ToLower(name)); !ok {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:    path,
			Name:    name,
			RelPath: filepath.ToSlash(rel),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})

	return files, nil
}

// FindCSVFiles finds all CSV files under dir
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.FindFiles(dir, "*.csv")
}

// FindExcelFiles finds all Excel workbooks under dir
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	return d.FindFiles(dir, "*.xlsx")
}

// Exists reports whether path exists and is a regular file
func (d *Discovery) Exists(path string) bool {
	info, err := d.fs.Stat(path)
	return err == nil && !info.IsDir()
}
