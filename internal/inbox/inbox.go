// Package inbox finds statements waiting in a drop directory and files them
// away once uploaded.
package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ProcessedDir is the subdirectory uploaded statements are moved into.
const ProcessedDir = "processed"

// FileInfo describes a CSV file waiting in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the CSV files directly inside dir, sorted by name. A missing
// directory yields no files.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// MarkProcessed moves name from dir into dir/processed. An existing file of
// the same name there is replaced.
func MarkProcessed(dir, name string) error {
	dst := filepath.Join(dir, ProcessedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	if err := os.Rename(filepath.Join(dir, name), filepath.Join(dst, name)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return nil
}
