// Package fsutil provides small file system helpers shared by the catalog
// loader and the block library locator.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// WalkMatching recursively searches root and returns the full path of
// every regular file whose base name satisfies match.
func WalkMatching(root string, match func(name string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// WalkExtension returns every file under root with the given extension.
func WalkExtension(root, extension string) ([]string, error) {
	return WalkMatching(root, func(name string) bool {
		return strings.HasSuffix(name, extension)
	})
}
