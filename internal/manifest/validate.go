package manifest

import (
	"fmt"

	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// Validate checks the manifest against the static block catalog: every
// block type must be registered (an unknown type is an error here, before
// any library is located), every connection endpoint must name an existing
// block and a pin declared on its type, connections must run output to
// input with compatible types, and each input pin may have at most one
// incoming connection. Outputs may fan out freely.
func (m *Manifest) Validate(reg *catalog.Registry) error {
	for i := range m.Blocks {
		b := &m.Blocks[i]
		if _, ok := reg.Lookup(b.Type); !ok {
			return &ParseError{
				Reason:   fmt.Sprintf("unknown block type %q", b.Type),
				Location: "block " + b.ID,
			}
		}
	}

	taken := make(map[Endpoint]bool)
	for i, c := range m.Connections {
		loc := fmt.Sprintf("connections[%d] (%s -> %s)", i, c.From, c.To)

		fromPin, err := m.endpointPin(reg, c.From, catalog.DirOutput)
		if err != nil {
			return &ParseError{Reason: err.Error(), Location: loc}
		}
		toPin, err := m.endpointPin(reg, c.To, catalog.DirInput)
		if err != nil {
			return &ParseError{Reason: err.Error(), Location: loc}
		}

		if !blockapi.Compatible(fromPin.Type, toPin.Type) {
			return &ParseError{
				Reason:   fmt.Sprintf("pin type %s cannot feed %s", fromPin.Type, toPin.Type),
				Location: loc,
			}
		}

		if taken[c.To] {
			return &ParseError{
				Reason:   fmt.Sprintf("input pin %s already has an incoming connection", c.To),
				Location: loc,
			}
		}
		taken[c.To] = true
	}

	return nil
}

// endpointPin resolves a connection endpoint to its declared pin,
// enforcing that the pin has the expected direction.
func (m *Manifest) endpointPin(reg *catalog.Registry, ep Endpoint, want catalog.Direction) (blockapi.PinDecl, error) {
	b, ok := m.byID[ep.Node]
	if !ok {
		return blockapi.PinDecl{}, fmt.Errorf("references unknown block id %q", ep.Node)
	}
	def, ok := reg.Lookup(b.Type)
	if !ok {
		return blockapi.PinDecl{}, fmt.Errorf("block %q has unknown type %q", ep.Node, b.Type)
	}
	pin, dir, ok := def.Pin(ep.Pin)
	if !ok {
		return blockapi.PinDecl{}, fmt.Errorf("block type %q has no pin %q", b.Type, ep.Pin)
	}
	if dir != want {
		return blockapi.PinDecl{}, fmt.Errorf("pin %s is an %s pin, want %s", ep, dir, want)
	}
	return pin, nil
}
