package catalog

import (
	"fmt"
	"sort"
)

// Registry is the static block definition catalog for one runtime
// instance. It is populated during startup and read-only afterwards;
// there is deliberately no global instance.
type Registry struct {
	defs map[string]*Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition to the catalog. Registering the same block
// type twice is an error: two libraries claiming one type id is a
// packaging mistake the operator has to resolve.
func (r *Registry) Register(def *Definition) error {
	if def.Type == "" {
		return fmt.Errorf("block definition with empty type")
	}
	if _, exists := r.defs[def.Type]; exists {
		return fmt.Errorf("block type %q registered twice", def.Type)
	}
	r.defs[def.Type] = def
	return nil
}

// Lookup returns the definition for a block type.
func (r *Registry) Lookup(blockType string) (*Definition, bool) {
	def, ok := r.defs[blockType]
	return def, ok
}

// Types returns every registered block type in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Len reports the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }
