package blocks

import (
	"math"

	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// sineBlock is a synthetic sensor: each execute advances a sine wave one
// sample and publishes it on the "value" output.
type sineBlock struct {
	blockapi.BaseBlock
	amplitude float64
	stepRad   float64
	phase     float64
}

type sineConfig struct {
	Amplitude float64 `mapstructure:"amplitude"`
	StepDeg   float64 `mapstructure:"step_deg"`
}

var sineBuiltin = builtin{
	def: &catalog.Definition{
		Type:        "sine",
		Category:    catalog.CategorySensor,
		Description: "Synthetic sine wave source.",
		Outputs:     []blockapi.PinDecl{{Name: "value", Type: blockapi.PinFloat}},
		Defaults: map[string]blockapi.Value{
			"amplitude": blockapi.Float(1.0),
			"step_deg":  blockapi.Float(15.0),
		},
	},
	factory: factoryFor(func() blockapi.Block {
		return &sineBlock{
			BaseBlock: blockapi.NewBase("sine", Version,
				nil,
				[]blockapi.PinDecl{{Name: "value", Type: blockapi.PinFloat}}),
		}
	}),
}

func (b *sineBlock) Init(cfg map[string]blockapi.Value) error {
	var c sineConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	b.amplitude = c.Amplitude
	b.stepRad = c.StepDeg * math.Pi / 180
	return b.SetOutput("value", blockapi.Float(0))
}

func (b *sineBlock) Execute() error {
	b.phase += b.stepRad
	return b.SetOutput("value", blockapi.Float(b.amplitude*math.Sin(b.phase)))
}

func (b *sineBlock) Shutdown() {}

// constantBlock publishes a configured value on every iteration.
type constantBlock struct {
	blockapi.BaseBlock
	value blockapi.Value
}

var constantBuiltin = builtin{
	def: &catalog.Definition{
		Type:        "constant",
		Category:    catalog.CategorySensor,
		Description: "Publishes a fixed configured value.",
		Outputs:     []blockapi.PinDecl{{Name: "value", Type: blockapi.PinAny}},
		Defaults: map[string]blockapi.Value{
			"value": blockapi.Float(0),
		},
	},
	factory: factoryFor(func() blockapi.Block {
		return &constantBlock{
			BaseBlock: blockapi.NewBase("constant", Version,
				nil,
				[]blockapi.PinDecl{{Name: "value", Type: blockapi.PinAny}}),
		}
	}),
}

func (b *constantBlock) Init(cfg map[string]blockapi.Value) error {
	if v, ok := cfg["value"]; ok {
		b.value = v
	} else {
		b.value = blockapi.Float(0)
	}
	return b.SetOutput("value", b.value)
}

func (b *constantBlock) Execute() error {
	return b.SetOutput("value", b.value)
}

func (b *constantBlock) Shutdown() {}
