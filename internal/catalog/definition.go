// Package catalog holds the static block definition registry: the catalog
// of every block type the runtime knows about, built once at startup and
// passed by reference to the manifest parser and the pipeline builder.
package catalog

import (
	"fmt"

	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// Category classifies a block type within the authoring palette.
type Category string

const (
	CategorySensor     Category = "sensor"
	CategoryProcessing Category = "processing"
	CategoryModel      Category = "model"
	CategoryOutput     Category = "output"
)

// ParseCategory validates a category name from a definition file.
func ParseCategory(name string) (Category, error) {
	switch c := Category(name); c {
	case CategorySensor, CategoryProcessing, CategoryModel, CategoryOutput:
		return c, nil
	default:
		return "", fmt.Errorf("unknown block category %q", name)
	}
}

// Direction distinguishes input pins from output pins.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirInput {
		return "input"
	}
	return "output"
}

// Definition is the immutable catalog entry for one block type: its
// identity, category, ordered pin lists, and default configuration.
type Definition struct {
	Type        string
	Category    Category
	Description string
	Inputs      []blockapi.PinDecl
	Outputs     []blockapi.PinDecl
	Defaults    map[string]blockapi.Value
}

// Pin looks up a declared pin by name, reporting its direction.
func (d *Definition) Pin(name string) (blockapi.PinDecl, Direction, bool) {
	for _, p := range d.Inputs {
		if p.Name == name {
			return p, DirInput, true
		}
	}
	for _, p := range d.Outputs {
		if p.Name == name {
			return p, DirOutput, true
		}
	}
	return blockapi.PinDecl{}, 0, false
}
