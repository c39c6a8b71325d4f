package blockload

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// DynamicLoader loads block libraries through the OS module loader. A
// path is opened at most once; subsequent Opens hand out additional
// references to the cached library.
//
// The Go runtime cannot unload a plugin once opened, so dropping the last
// reference evicts the cache entry without returning the pages to the OS.
// The reference counting still gates block destruction ordering, which is
// what the hardware teardown contract needs.
type DynamicLoader struct {
	mu   sync.Mutex
	open map[string]*Library
}

// NewDynamicLoader creates an empty dynamic loader.
func NewDynamicLoader() *DynamicLoader {
	return &DynamicLoader{open: make(map[string]*Library)}
}

// Open loads the library at path and resolves its two factory entry
// points. A file that cannot be opened yields an OpenError; a file that
// opens but lacks either symbol yields an EntryPointError.
func (d *DynamicLoader) Open(path string) (*Library, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if lib, ok := d.open[path]; ok {
		lib.Retain()
		return lib, nil
	}

	mod, err := plugin.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	factory, err := resolveFactory(path, mod)
	if err != nil {
		return nil, err
	}

	lib := &Library{
		path:    path,
		factory: factory,
		refs:    1,
	}
	lib.release = func() {
		d.mu.Lock()
		delete(d.open, path)
		d.mu.Unlock()
	}
	d.open[path] = lib
	return lib, nil
}

func resolveFactory(path string, mod *plugin.Plugin) (Factory, error) {
	newSym, err := mod.Lookup(blockapi.SymbolNew)
	if err != nil {
		return Factory{}, &EntryPointError{Path: path, Symbol: blockapi.SymbolNew, Err: err}
	}
	newFn, ok := symbolValue[func() blockapi.Block](newSym)
	if !ok {
		return Factory{}, &EntryPointError{
			Path:   path,
			Symbol: blockapi.SymbolNew,
			Err:    fmt.Errorf("symbol has wrong type %T", newSym),
		}
	}

	destroySym, err := mod.Lookup(blockapi.SymbolDestroy)
	if err != nil {
		return Factory{}, &EntryPointError{Path: path, Symbol: blockapi.SymbolDestroy, Err: err}
	}
	destroyFn, ok := symbolValue[func(blockapi.Block)](destroySym)
	if !ok {
		return Factory{}, &EntryPointError{
			Path:   path,
			Symbol: blockapi.SymbolDestroy,
			Err:    fmt.Errorf("symbol has wrong type %T", destroySym),
		}
	}

	return Factory{New: newFn, Destroy: destroyFn}, nil
}

// symbolValue unwraps a plugin symbol that may be exported either as the
// function itself or as a package-level variable of function type.
func symbolValue[T any](sym plugin.Symbol) (T, bool) {
	if fn, ok := sym.(T); ok {
		return fn, true
	}
	if ptr, ok := sym.(*T); ok && ptr != nil {
		return *ptr, true
	}
	var zero T
	return zero, false
}
