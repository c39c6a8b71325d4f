package blockload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

type nopBlock struct {
	blockapi.BaseBlock
}

func (b *nopBlock) Init(map[string]blockapi.Value) error { return nil }
func (b *nopBlock) Execute() error                       { return nil }
func (b *nopBlock) Shutdown()                            {}

func testFactory() Factory {
	return Factory{
		New: func() blockapi.Block {
			return &nopBlock{BaseBlock: blockapi.NewBase("nop", "1.0.0", nil, nil)}
		},
		Destroy: func(blockapi.Block) {},
	}
}

func TestStaticLoader(t *testing.T) {
	t.Run("open unregistered name", func(t *testing.T) {
		l := NewStaticLoader()
		_, err := l.Open("libmissing-1.0.0.so")
		var openErr *OpenError
		require.ErrorAs(t, err, &openErr)
		assert.Equal(t, "libmissing-1.0.0.so", openErr.Path)
	})

	t.Run("open matches by base name", func(t *testing.T) {
		l := NewStaticLoader()
		l.Register("libnop-1.0.0.so", testFactory())

		lib, err := l.Open("/opt/blocks/libnop-1.0.0.so")
		require.NoError(t, err)
		assert.Equal(t, 1, lib.Refs())

		block := lib.NewBlock()
		require.NotNil(t, block)
		assert.Equal(t, "nop", block.Meta().Type)
	})

	t.Run("repeat open shares one library", func(t *testing.T) {
		l := NewStaticLoader()
		l.Register("libnop-1.0.0.so", testFactory())

		first, err := l.Open("libnop-1.0.0.so")
		require.NoError(t, err)
		second, err := l.Open("libnop-1.0.0.so")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 2, first.Refs())
	})

	t.Run("release evicts at zero refs", func(t *testing.T) {
		l := NewStaticLoader()
		l.Register("libnop-1.0.0.so", testFactory())

		lib, err := l.Open("libnop-1.0.0.so")
		require.NoError(t, err)
		lib.Retain()
		require.Equal(t, 2, lib.Refs())

		lib.Release()
		assert.Equal(t, 1, lib.Refs())
		lib.Release()
		assert.Equal(t, 0, lib.Refs())

		// Extra releases stay at zero.
		lib.Release()
		assert.Equal(t, 0, lib.Refs())

		// A fresh open creates a new library instance.
		again, err := l.Open("libnop-1.0.0.so")
		require.NoError(t, err)
		assert.NotSame(t, lib, again)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		l := NewStaticLoader()
		l.Register("libnop-1.0.0.so", testFactory())
		assert.Panics(t, func() {
			l.Register("libnop-1.0.0.so", testFactory())
		})
	})
}

func TestDynamicLoaderOpenError(t *testing.T) {
	l := NewDynamicLoader()
	_, err := l.Open("/nonexistent/libx-1.0.0.so")
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Contains(t, openErr.Error(), "opening block library")
}
