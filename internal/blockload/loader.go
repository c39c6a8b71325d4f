// Package blockload opens resolved plugin libraries and manages their
// load/unload lifetime. One loaded library may back several node
// instances of the same type, so libraries are reference counted and the
// OS handle is released only after the last node is destroyed.
package blockload

import (
	"fmt"
	"sync"

	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// OpenError means the module file could not be opened at all.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening block library %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// EntryPointError means the module opened but one of the two required
// factory symbols is missing or has the wrong signature. Kept distinct
// from OpenError so "wrong file" and "wrong build" read differently.
type EntryPointError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *EntryPointError) Error() string {
	return fmt.Sprintf("block library %s: entry point %s: %v", e.Path, e.Symbol, e.Err)
}

func (e *EntryPointError) Unwrap() error { return e.Err }

// Factory is the pair of entry points resolved from a library.
type Factory struct {
	New     func() blockapi.Block
	Destroy func(blockapi.Block)
}

// Library is one loaded block library: the resolved factory plus a
// reference count tying the handle's lifetime to the nodes built from it.
type Library struct {
	path    string
	factory Factory

	mu      sync.Mutex
	refs    int
	release func()
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// NewBlock constructs a fresh block instance from the library's factory.
func (l *Library) NewBlock() blockapi.Block { return l.factory.New() }

// DestroyBlock hands an instance back to the library's destroy entry point.
func (l *Library) DestroyBlock(b blockapi.Block) {
	if l.factory.Destroy != nil {
		l.factory.Destroy(b)
	}
}

// Retain adds a reference for an additional node backed by this library.
func (l *Library) Retain() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refs++
}

// Release drops one reference. When the count reaches zero the loader's
// cache entry is evicted. Reference counts only move during graph build
// and teardown, never inside the iteration loop.
func (l *Library) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refs == 0 {
		return
	}
	l.refs--
	if l.refs == 0 && l.release != nil {
		l.release()
	}
}

// Refs reports the current reference count.
func (l *Library) Refs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs
}

// Loader resolves a library file into a ready-to-use Library. Open
// returns the library with one reference already held for the caller.
type Loader interface {
	Open(path string) (*Library, error)
}
