// Package blockapi defines the contract between the block runtime and
// dynamically loaded pipeline blocks. Plugin libraries import only this
// package; the engine's internals stay private to the runtime.
//
// A plugin library must export two symbols:
//
//	var NewBlock func() blockapi.Block
//	var DestroyBlock func(blockapi.Block)
//
// NewBlock constructs a fresh, uninitialized block instance. DestroyBlock
// is invoked exactly once per instance after Shutdown, before the backing
// library is released.
package blockapi

import "fmt"

// Symbol names the loader resolves on every plugin library.
const (
	SymbolNew     = "NewBlock"
	SymbolDestroy = "DestroyBlock"
)

// Meta identifies a block instance: the instance id assigned by the
// manifest, plus the type and version of the implementation.
type Meta struct {
	ID      string
	Type    string
	Version string
}

// Block is the object contract every pipeline block satisfies.
//
// Lifecycle: the runtime calls SetID once, then Init with the merged
// configuration, then Execute once per iteration, then Shutdown exactly
// once (even when Init failed on a sibling block). Shutdown must be safe
// to call on a block whose Init returned an error.
type Block interface {
	Meta() Meta
	SetID(id string)

	Init(cfg map[string]Value) error
	Execute() error
	Shutdown()

	Inputs() []PinDecl
	Outputs() []PinDecl
	SetInput(name string, v Value) error
	Output(name string) (Value, bool)
}

// BaseBlock implements the bookkeeping half of the Block contract: meta
// data, pin declarations, and current pin values. Block implementations
// embed it and provide Init, Execute and Shutdown themselves.
type BaseBlock struct {
	meta    Meta
	inputs  []PinDecl
	outputs []PinDecl
	inVals  map[string]Value
	outVals map[string]Value
}

// NewBase constructs the embedded base for a block implementation.
func NewBase(blockType, version string, inputs, outputs []PinDecl) BaseBlock {
	return BaseBlock{
		meta:    Meta{Type: blockType, Version: version},
		inputs:  inputs,
		outputs: outputs,
		inVals:  make(map[string]Value, len(inputs)),
		outVals: make(map[string]Value, len(outputs)),
	}
}

// Meta returns the block's identity.
func (b *BaseBlock) Meta() Meta { return b.meta }

// SetID records the manifest-assigned instance id.
func (b *BaseBlock) SetID(id string) { b.meta.ID = id }

// Inputs returns the declared input pins in declaration order.
func (b *BaseBlock) Inputs() []PinDecl { return b.inputs }

// Outputs returns the declared output pins in declaration order.
func (b *BaseBlock) Outputs() []PinDecl { return b.outputs }

// SetInput stores a value on a declared input pin, converting it to the
// pin's kind where the implicit numeric cast applies.
func (b *BaseBlock) SetInput(name string, v Value) error {
	decl, ok := findPin(b.inputs, name)
	if !ok {
		return fmt.Errorf("block %q has no input pin %q", b.meta.Type, name)
	}
	if kind, fixed := decl.Type.Kind(); fixed {
		converted, err := Convert(v, kind)
		if err != nil {
			return fmt.Errorf("input pin %q: %w", name, err)
		}
		v = converted
	}
	b.inVals[name] = v
	return nil
}

// Input returns the current value of a declared input pin.
func (b *BaseBlock) Input(name string) (Value, bool) {
	v, ok := b.inVals[name]
	return v, ok
}

// Output returns the current value of a declared output pin.
func (b *BaseBlock) Output(name string) (Value, bool) {
	v, ok := b.outVals[name]
	return v, ok
}

// SetOutput publishes a value on a declared output pin. Intended for use
// by the embedding block's Execute step.
func (b *BaseBlock) SetOutput(name string, v Value) error {
	if _, ok := findPin(b.outputs, name); !ok {
		return fmt.Errorf("block %q has no output pin %q", b.meta.Type, name)
	}
	b.outVals[name] = v
	return nil
}

func findPin(decls []PinDecl, name string) (PinDecl, bool) {
	for _, d := range decls {
		if d.Name == name {
			return d, true
		}
	}
	return PinDecl{}, false
}
