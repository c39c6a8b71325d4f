package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

func writeDef(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "gpio.hcl", `
block "gpio_output" {
  category    = "output"
  description = "Drives a GPIO line."

  input "value" {
    type = "bool"
  }

  defaults = {
    pin       = 17
    active    = true
    label     = "relay"
    calib_vec = [1.0, 0.5, 0.25]
  }
}
`)

	reg := New()
	require.NoError(t, LoadDir(context.Background(), reg, dir))
	require.Equal(t, 1, reg.Len())

	def, ok := reg.Lookup("gpio_output")
	require.True(t, ok)
	assert.Equal(t, CategoryOutput, def.Category)
	assert.Equal(t, "Drives a GPIO line.", def.Description)

	pin, direction, ok := def.Pin("value")
	require.True(t, ok)
	assert.Equal(t, DirInput, direction)
	assert.Equal(t, blockapi.PinBool, pin.Type)

	t.Run("whole number defaults decode as ints", func(t *testing.T) {
		v := def.Defaults["pin"]
		i, ok := v.AsInt()
		require.True(t, ok)
		assert.Equal(t, int64(17), i)
	})

	t.Run("list defaults decode as vectors", func(t *testing.T) {
		vec, ok := def.Defaults["calib_vec"].AsVector()
		require.True(t, ok)
		assert.Equal(t, []float64{1, 0.5, 0.25}, vec)
	})
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("unknown category", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "bad.hcl", `
block "x" {
  category = "actuator"
}
`)
		err := LoadDir(context.Background(), New(), dir)
		assert.ErrorContains(t, err, "unknown block category")
	})

	t.Run("unknown pin type", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "bad.hcl", `
block "x" {
  category = "sensor"
  output "v" {
    type = "quaternion"
  }
}
`)
		err := LoadDir(context.Background(), New(), dir)
		assert.ErrorContains(t, err, "unknown pin type")
	})

	t.Run("duplicate type across files", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "a.hcl", `
block "dup" {
  category = "sensor"
}
`)
		writeDef(t, dir, "b.hcl", `
block "dup" {
  category = "sensor"
}
`)
		err := LoadDir(context.Background(), New(), dir)
		assert.ErrorContains(t, err, "registered twice")
	})

	t.Run("empty directory is not fatal", func(t *testing.T) {
		reg := New()
		require.NoError(t, LoadDir(context.Background(), reg, t.TempDir()))
		assert.Equal(t, 0, reg.Len())
	})
}

func TestRegistry(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(&Definition{Type: "a", Category: CategorySensor}))
	require.NoError(t, reg.Register(&Definition{Type: "b", Category: CategoryOutput}))

	assert.Equal(t, []string{"a", "b"}, reg.Types())
	assert.ErrorContains(t, reg.Register(&Definition{Type: "a"}), "registered twice")
	assert.ErrorContains(t, reg.Register(&Definition{}), "empty type")
}
