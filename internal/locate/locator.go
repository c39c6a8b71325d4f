package locate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cira-io/cira-runtime/internal/ctxlog"
	"github.com/cira-io/cira-runtime/internal/fsutil"
	"github.com/cira-io/cira-runtime/internal/manifest"
)

// Locate resolves every distinct (type, version) pair the manifest
// references to a library file under the search roots, using the host
// platform's naming convention. Roots are scanned recursively in order
// and the first match wins. All misses are accumulated before returning.
func Locate(ctx context.Context, man *manifest.Manifest, searchPaths []string) (*Resolved, error) {
	logger := ctxlog.FromContext(ctx)

	needed := make(map[libKey]Ref)
	var order []libKey
	for _, b := range man.Blocks {
		key := libKey{b.Type, b.Version}
		if _, seen := needed[key]; !seen {
			needed[key] = Ref{ID: b.ID, Type: b.Type, Version: b.Version}
			order = append(order, key)
		}
	}

	// One walk per root, indexing candidate files by base name. Earlier
	// roots and earlier walk order take precedence.
	index := make(map[string]string)
	for _, root := range searchPaths {
		if _, err := os.Stat(root); err != nil {
			logger.Warn("Skipping unreadable search path.", "path", root, "error", err)
			continue
		}
		found, err := fsutil.WalkMatching(root, func(string) bool { return true })
		if err != nil {
			logger.Warn("Search path walk failed.", "path", root, "error", err)
			continue
		}
		for _, path := range found {
			name := filepath.Base(path)
			if _, taken := index[name]; !taken {
				index[name] = path
			}
		}
	}

	resolved := &Resolved{paths: make(map[libKey]string, len(order))}
	var missing []Ref
	for _, key := range order {
		name := HostLibraryFileName(key.blockType, key.version)
		path, ok := index[name]
		if !ok {
			missing = append(missing, needed[key])
			continue
		}
		resolved.paths[key] = path
		resolved.order = append(resolved.order, key)
		logger.Debug("Resolved block library.", "type", key.blockType, "version", key.version, "path", path)
	}

	if len(missing) > 0 {
		sortMissing(missing)
		return nil, &MissingBlocksError{Missing: missing}
	}

	logger.Info("All block libraries resolved.", "count", resolved.Len())
	return resolved, nil
}
