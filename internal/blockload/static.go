package blockload

import (
	"fmt"
	"path/filepath"
	"sync"
)

// StaticLoader serves factories registered in-process instead of opening
// OS modules. It backs the compiled-in block set and lets tests exercise
// the full build/teardown path without shipping real plugin files.
type StaticLoader struct {
	mu        sync.Mutex
	factories map[string]Factory
	open      map[string]*Library
}

// NewStaticLoader creates an empty static loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{
		factories: make(map[string]Factory),
		open:      make(map[string]*Library),
	}
}

// Register associates a factory with a library file name (base name, no
// directory). Registering the same name twice panics: duplicate
// registration is a programmer error.
func (s *StaticLoader) Register(name string, factory Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.factories[name]; exists {
		panic(fmt.Sprintf("blockload: factory for %q already registered", name))
	}
	s.factories[name] = factory
}

// Open returns a reference-counted library for a registered file name.
// The path's directory part is ignored, so locator results resolve to
// their registered factories. Unregistered names report an OpenError,
// same as a missing file.
func (s *StaticLoader) Open(path string) (*Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lib, ok := s.open[path]; ok {
		lib.Retain()
		return lib, nil
	}

	factory, ok := s.factories[filepath.Base(path)]
	if !ok {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("no such registered library")}
	}

	lib := &Library{
		path:    path,
		factory: factory,
		refs:    1,
	}
	lib.release = func() {
		s.mu.Lock()
		delete(s.open, path)
		s.mu.Unlock()
	}
	s.open[path] = lib
	return lib, nil
}
