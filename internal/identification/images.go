package identification

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions are the source formats the pipeline accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".heic": true,
}

// IsImage reports whether the filename carries a recognized image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ListImages returns the folder's source images sorted by filename. The walk
// is non-recursive, hidden files are skipped, and anything whose name
// mentions "processed" is excluded so re-runs never re-ingest pipeline
// output.
func ListImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if strings.Contains(strings.ToLower(name), "processed") {
			continue
		}
		if !IsImage(name) {
			continue
		}
		images = append(images, filepath.Join(folder, name))
	}
	sort.Strings(images)
	return images, nil
}

// IsCandidateFolder reports whether a watch-dir entry should enter the
// pipeline: a non-hidden directory containing at least one source image.
func IsCandidateFolder(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	images, err := ListImages(path)
	if err != nil {
		return false
	}
	return len(images) > 0
}
