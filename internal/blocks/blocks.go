// Package blocks ships the compiled-in block set: a handful of sensor,
// processing, model and output blocks registered against a static loader.
// They give integration tests real pipelines to run and serve as the
// reference implementations of the block contract for plugin authors.
package blocks

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/cira-io/cira-runtime/internal/blockload"
	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/internal/locate"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// Version stamped on every builtin block.
const Version = "1.0.0"

// builtin couples one block type's definition with its factory.
type builtin struct {
	def     *catalog.Definition
	factory blockload.Factory
}

var builtins = []builtin{
	sineBuiltin,
	constantBuiltin,
	gainBuiltin,
	thresholdBuiltin,
	mergeBuiltin,
	logBuiltin,
}

// Register installs every builtin block: its definition into the catalog
// and its factory into the static loader, under the same file name the
// locator would compute for a shipped library.
func Register(reg *catalog.Registry, loader *blockload.StaticLoader) error {
	for _, b := range builtins {
		if err := reg.Register(b.def); err != nil {
			return err
		}
		loader.Register(locate.HostLibraryFileName(b.def.Type, Version), b.factory)
	}
	return nil
}

// decodeConfig maps a block's loose configuration onto a typed struct.
func decodeConfig(cfg map[string]blockapi.Value, out any) error {
	raw := make(map[string]any, len(cfg))
	for k, v := range cfg {
		raw[k] = v.Interface()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decoding block config: %w", err)
	}
	return nil
}

func factoryFor(construct func() blockapi.Block) blockload.Factory {
	return blockload.Factory{
		New:     construct,
		Destroy: func(blockapi.Block) {},
	}
}
