package blocks

import (
	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// gainBlock multiplies its float input by a configured gain.
type gainBlock struct {
	blockapi.BaseBlock
	gain float64
}

type gainConfig struct {
	Gain float64 `mapstructure:"gain"`
}

var gainBuiltin = builtin{
	def: &catalog.Definition{
		Type:        "gain",
		Category:    catalog.CategoryProcessing,
		Description: "Scales a float signal by a constant factor.",
		Inputs:      []blockapi.PinDecl{{Name: "in", Type: blockapi.PinFloat}},
		Outputs:     []blockapi.PinDecl{{Name: "out", Type: blockapi.PinFloat}},
		Defaults: map[string]blockapi.Value{
			"gain": blockapi.Float(1.0),
		},
	},
	factory: factoryFor(func() blockapi.Block {
		return &gainBlock{
			BaseBlock: blockapi.NewBase("gain", Version,
				[]blockapi.PinDecl{{Name: "in", Type: blockapi.PinFloat}},
				[]blockapi.PinDecl{{Name: "out", Type: blockapi.PinFloat}}),
		}
	}),
}

func (b *gainBlock) Init(cfg map[string]blockapi.Value) error {
	var c gainConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	b.gain = c.Gain
	return nil
}

func (b *gainBlock) Execute() error {
	in, ok := b.Input("in")
	if !ok {
		return b.SetOutput("out", blockapi.Float(0))
	}
	f, _ := in.AsFloat()
	return b.SetOutput("out", blockapi.Float(f*b.gain))
}

func (b *gainBlock) Shutdown() {}

// mergeBlock packs two float inputs into a vector output.
type mergeBlock struct {
	blockapi.BaseBlock
}

var mergeBuiltin = builtin{
	def: &catalog.Definition{
		Type:        "merge",
		Category:    catalog.CategoryProcessing,
		Description: "Combines two float signals into one vector.",
		Inputs: []blockapi.PinDecl{
			{Name: "a", Type: blockapi.PinFloat},
			{Name: "b", Type: blockapi.PinFloat},
		},
		Outputs: []blockapi.PinDecl{{Name: "vec", Type: blockapi.PinArray}},
	},
	factory: factoryFor(func() blockapi.Block {
		return &mergeBlock{
			BaseBlock: blockapi.NewBase("merge", Version,
				[]blockapi.PinDecl{
					{Name: "a", Type: blockapi.PinFloat},
					{Name: "b", Type: blockapi.PinFloat},
				},
				[]blockapi.PinDecl{{Name: "vec", Type: blockapi.PinArray}}),
		}
	}),
}

func (b *mergeBlock) Init(map[string]blockapi.Value) error { return nil }

func (b *mergeBlock) Execute() error {
	var a, bb float64
	if v, ok := b.Input("a"); ok {
		a, _ = v.AsFloat()
	}
	if v, ok := b.Input("b"); ok {
		bb, _ = v.AsFloat()
	}
	return b.SetOutput("vec", blockapi.Vector([]float64{a, bb}))
}

func (b *mergeBlock) Shutdown() {}
