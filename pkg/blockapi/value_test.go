package blockapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	t.Run("identical kinds pass through", func(t *testing.T) {
		v, err := Convert(Bool(true), KindBool)
		require.NoError(t, err)
		b, ok := v.AsBool()
		require.True(t, ok)
		assert.True(t, b)
	})

	t.Run("int to float casts", func(t *testing.T) {
		v, err := Convert(Int(3), KindFloat)
		require.NoError(t, err)
		f, ok := v.AsFloat()
		require.True(t, ok)
		assert.Equal(t, 3.0, f)
	})

	t.Run("float to int truncates", func(t *testing.T) {
		v, err := Convert(Float(2.9), KindInt)
		require.NoError(t, err)
		i, ok := v.AsInt()
		require.True(t, ok)
		assert.Equal(t, int64(2), i)
	})

	t.Run("bool to string is rejected", func(t *testing.T) {
		_, err := Convert(Bool(true), KindString)
		assert.ErrorContains(t, err, "cannot convert")
	})

	t.Run("vector to float is rejected", func(t *testing.T) {
		_, err := Convert(Vector([]float64{1, 2}), KindFloat)
		assert.Error(t, err)
	})
}

func TestCompatible(t *testing.T) {
	cases := []struct {
		name string
		out  PinType
		in   PinType
		want bool
	}{
		{"float to float", PinFloat, PinFloat, true},
		{"int to int", PinInt, PinInt, true},
		{"float to int", PinFloat, PinInt, true},
		{"int to float", PinInt, PinFloat, true},
		{"any to bool", PinAny, PinBool, true},
		{"string to any", PinString, PinAny, true},
		{"bool to string", PinBool, PinString, false},
		{"float to bool", PinFloat, PinBool, false},
		{"vec3 to array", PinVec3, PinArray, false},
		{"array to array", PinArray, PinArray, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compatible(tc.out, tc.in))
		})
	}
}

func TestFromAny(t *testing.T) {
	t.Run("json number", func(t *testing.T) {
		v, err := FromAny(1.5)
		require.NoError(t, err)
		assert.Equal(t, KindFloat, v.Kind())
	})

	t.Run("json array of numbers", func(t *testing.T) {
		v, err := FromAny([]any{1.0, 2.0, 3.0})
		require.NoError(t, err)
		vec, ok := v.AsVector()
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3}, vec)
	})

	t.Run("mixed array is rejected", func(t *testing.T) {
		_, err := FromAny([]any{1.0, "two"})
		assert.ErrorContains(t, err, "want number")
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := FromAny(map[string]any{"x": 1})
		assert.ErrorContains(t, err, "unsupported value type")
	})
}

func TestVectorIsCopied(t *testing.T) {
	src := []float64{1, 2}
	v := Vector(src)
	src[0] = 99

	vec, ok := v.AsVector()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, vec)
}

func TestBaseBlockPins(t *testing.T) {
	base := NewBase("test", "1.0.0",
		[]PinDecl{{Name: "in", Type: PinFloat}},
		[]PinDecl{{Name: "out", Type: PinBool}})

	t.Run("set input converts to pin kind", func(t *testing.T) {
		require.NoError(t, base.SetInput("in", Int(4)))
		v, ok := base.Input("in")
		require.True(t, ok)
		assert.Equal(t, KindFloat, v.Kind())
	})

	t.Run("unknown input pin errors", func(t *testing.T) {
		assert.ErrorContains(t, base.SetInput("nope", Float(1)), "no input pin")
	})

	t.Run("incompatible input value errors", func(t *testing.T) {
		assert.Error(t, base.SetInput("in", String("x")))
	})

	t.Run("unknown output pin errors", func(t *testing.T) {
		assert.ErrorContains(t, base.SetOutput("nope", Bool(true)), "no output pin")
	})

	t.Run("set id updates meta", func(t *testing.T) {
		base.SetID("n1")
		assert.Equal(t, "n1", base.Meta().ID)
		assert.Equal(t, "test", base.Meta().Type)
	})
}
