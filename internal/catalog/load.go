package catalog

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/cira-io/cira-runtime/internal/ctxlog"
	"github.com/cira-io/cira-runtime/internal/fsutil"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// defFileSchema is the top level of a block definition file: one or more
// 'block' blocks.
type defFileSchema struct {
	Blocks []*defBlock `hcl:"block,block"`
}

// defBlock mirrors a single 'block "<type>" { ... }' definition.
type defBlock struct {
	Type        string     `hcl:"type,label"`
	Category    string     `hcl:"category"`
	Description string     `hcl:"description,optional"`
	Inputs      []*defPin  `hcl:"input,block"`
	Outputs     []*defPin  `hcl:"output,block"`
	Defaults    *cty.Value `hcl:"defaults,optional"`
}

type defPin struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

// LoadDir walks a block library directory for *.hcl definition files and
// registers every block definition found. Definition files ship next to
// the plugin libraries they describe.
func LoadDir(ctx context.Context, reg *Registry, dir string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading block definitions.", "path", dir)

	paths, err := fsutil.WalkExtension(dir, ".hcl")
	if err != nil {
		return fmt.Errorf("scanning block definitions in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		logger.Warn("No block definition files found.", "path", dir)
		return nil
	}

	parser := hclparse.NewParser()
	for _, path := range paths {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return fmt.Errorf("parsing definition file %s: %w", path, diags)
		}

		var root defFileSchema
		if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
			return fmt.Errorf("decoding definition file %s: %w", path, diags)
		}

		for _, raw := range root.Blocks {
			def, err := raw.toDefinition()
			if err != nil {
				return fmt.Errorf("definition file %s: %w", path, err)
			}
			if err := reg.Register(def); err != nil {
				return fmt.Errorf("definition file %s: %w", path, err)
			}
			logger.Debug("Registered block definition.", "type", def.Type, "category", def.Category)
		}
	}

	logger.Info("Block catalog loaded.", "definitions", reg.Len())
	return nil
}

func (b *defBlock) toDefinition() (*Definition, error) {
	category, err := ParseCategory(b.Category)
	if err != nil {
		return nil, fmt.Errorf("block %q: %w", b.Type, err)
	}

	def := &Definition{
		Type:        b.Type,
		Category:    category,
		Description: b.Description,
		Defaults:    make(map[string]blockapi.Value),
	}

	for _, p := range b.Inputs {
		decl, err := p.toDecl()
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", b.Type, err)
		}
		def.Inputs = append(def.Inputs, decl)
	}
	for _, p := range b.Outputs {
		decl, err := p.toDecl()
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", b.Type, err)
		}
		def.Outputs = append(def.Outputs, decl)
	}

	if b.Defaults != nil && !b.Defaults.IsNull() {
		if !b.Defaults.Type().IsObjectType() && !b.Defaults.Type().IsMapType() {
			return nil, fmt.Errorf("block %q: defaults must be an object", b.Type)
		}
		for key, val := range b.Defaults.AsValueMap() {
			converted, err := valueFromCty(val)
			if err != nil {
				return nil, fmt.Errorf("block %q: default %q: %w", b.Type, key, err)
			}
			def.Defaults[key] = converted
		}
	}

	return def, nil
}

func (p *defPin) toDecl() (blockapi.PinDecl, error) {
	pt, err := blockapi.ParsePinType(p.Type)
	if err != nil {
		return blockapi.PinDecl{}, fmt.Errorf("pin %q: %w", p.Name, err)
	}
	return blockapi.PinDecl{Name: p.Name, Type: pt}, nil
}

// valueFromCty converts a decoded HCL value into a tagged pin value.
// Whole numbers become ints; everything else keeps its natural kind.
func valueFromCty(v cty.Value) (blockapi.Value, error) {
	if v.IsNull() {
		return blockapi.Value{}, fmt.Errorf("null value")
	}
	ty := v.Type()
	switch {
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return blockapi.Int(i), nil
		}
		f, _ := bf.Float64()
		return blockapi.Float(f), nil
	case ty == cty.Bool:
		return blockapi.Bool(v.True()), nil
	case ty == cty.String:
		return blockapi.String(v.AsString()), nil
	case ty.IsTupleType() || ty.IsListType():
		var vec []float64
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.Type() != cty.Number {
				return blockapi.Value{}, fmt.Errorf("vector element is %s, want number", elem.Type().FriendlyName())
			}
			f, _ := elem.AsBigFloat().Float64()
			vec = append(vec, f)
		}
		return blockapi.Vector(vec), nil
	default:
		return blockapi.Value{}, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
