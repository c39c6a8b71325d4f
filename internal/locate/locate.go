// Package locate maps the (type, version) pairs a manifest references to
// concrete plugin library files under a set of search roots.
package locate

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Ref identifies one missing block dependency. ID is the first manifest
// instance that required it; several instances may share one library.
type Ref struct {
	ID      string
	Type    string
	Version string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s (type %s, version %s)", r.ID, r.Type, r.Version)
}

// MissingBlocksError reports every unresolvable dependency found in a
// single pass, so a deploying user sees the complete set at once instead
// of discovering them one redeploy at a time.
type MissingBlocksError struct {
	Missing []Ref
}

func (e *MissingBlocksError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		parts[i] = r.String()
	}
	return "missing block libraries: " + strings.Join(parts, ", ")
}

// LibraryFileName returns the platform naming convention for a block
// library. The GOOS is a parameter because the deployer resolves
// libraries for the target device's platform, not the local one.
func LibraryFileName(goos, blockType, version string) string {
	base := blockType + "-" + version
	switch goos {
	case "windows":
		return base + ".dll"
	case "darwin":
		return "lib" + base + ".dylib"
	default:
		return "lib" + base + ".so"
	}
}

// HostLibraryFileName applies the convention for the local platform.
func HostLibraryFileName(blockType, version string) string {
	return LibraryFileName(runtime.GOOS, blockType, version)
}

// Resolved is the read-only result of a successful locate pass.
type Resolved struct {
	paths map[libKey]string
	order []libKey
}

type libKey struct {
	blockType string
	version   string
}

// PathFor returns the resolved library file for a (type, version) pair.
func (r *Resolved) PathFor(blockType, version string) (string, bool) {
	p, ok := r.paths[libKey{blockType, version}]
	return p, ok
}

// Paths returns every resolved library file, ordered by first reference
// in the manifest. Consumed by the deployer's transfer step.
func (r *Resolved) Paths() []string {
	out := make([]string, len(r.order))
	for i, k := range r.order {
		out[i] = r.paths[k]
	}
	return out
}

// Len reports the number of distinct libraries resolved.
func (r *Resolved) Len() int { return len(r.order) }

// sortMissing keeps the error report stable for operators and tests.
func sortMissing(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].Version < refs[j].Version
	})
}
