package blocks

import (
	"log/slog"

	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// thresholdBlock is a minimal model block: true when the input crosses
// the configured limit.
type thresholdBlock struct {
	blockapi.BaseBlock
	limit float64
}

type thresholdConfig struct {
	Limit float64 `mapstructure:"limit"`
}

var thresholdBuiltin = builtin{
	def: &catalog.Definition{
		Type:        "threshold",
		Category:    catalog.CategoryModel,
		Description: "Boolean decision against a fixed limit.",
		Inputs:      []blockapi.PinDecl{{Name: "in", Type: blockapi.PinFloat}},
		Outputs:     []blockapi.PinDecl{{Name: "hit", Type: blockapi.PinBool}},
		Defaults: map[string]blockapi.Value{
			"limit": blockapi.Float(0.5),
		},
	},
	factory: factoryFor(func() blockapi.Block {
		return &thresholdBlock{
			BaseBlock: blockapi.NewBase("threshold", Version,
				[]blockapi.PinDecl{{Name: "in", Type: blockapi.PinFloat}},
				[]blockapi.PinDecl{{Name: "hit", Type: blockapi.PinBool}}),
		}
	}),
}

func (b *thresholdBlock) Init(cfg map[string]blockapi.Value) error {
	var c thresholdConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	b.limit = c.Limit
	return b.SetOutput("hit", blockapi.Bool(false))
}

func (b *thresholdBlock) Execute() error {
	var f float64
	if v, ok := b.Input("in"); ok {
		f, _ = v.AsFloat()
	}
	return b.SetOutput("hit", blockapi.Bool(f >= b.limit))
}

func (b *thresholdBlock) Shutdown() {}

// logBlock is the output sink of the builtin set. It remembers the last
// value and how often it fired, which is what the integration tests
// assert against.
type logBlock struct {
	blockapi.BaseBlock
	logger      *slog.Logger
	invocations int
	last        blockapi.Value
}

var logBuiltin = builtin{
	def: &catalog.Definition{
		Type:        "log",
		Category:    catalog.CategoryOutput,
		Description: "Logs whatever arrives on its input.",
		Inputs:      []blockapi.PinDecl{{Name: "in", Type: blockapi.PinAny}},
	},
	factory: factoryFor(func() blockapi.Block {
		return &logBlock{
			BaseBlock: blockapi.NewBase("log", Version,
				[]blockapi.PinDecl{{Name: "in", Type: blockapi.PinAny}},
				nil),
		}
	}),
}

func (b *logBlock) Init(map[string]blockapi.Value) error {
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return nil
}

func (b *logBlock) Execute() error {
	b.invocations++
	if v, ok := b.Input("in"); ok {
		b.last = v
		b.logger.Debug("log block fired.", "block", b.Meta().ID, "value", v.String())
	}
	return nil
}

func (b *logBlock) Shutdown() {}

// Invocations reports how many times the block executed.
func (b *logBlock) Invocations() int { return b.invocations }

// Last returns the most recent input value.
func (b *logBlock) Last() blockapi.Value { return b.last }
