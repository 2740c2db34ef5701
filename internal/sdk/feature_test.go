package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureValueAccessors(t *testing.T) {
	i, err := IntValue(42).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	f, err := IntValue(42).Float()
	require.NoError(t, err)
	assert.Equal(t, 42.0, f)

	// Integral floats read back as ints, fractional ones do not.
	i, err = FloatValue(3).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(3), i)
	_, err = FloatValue(3.5).Int()
	assert.ErrorIs(t, err, ErrValueType)

	b, err := BoolValue(true).Bool()
	require.NoError(t, err)
	assert.True(t, b)
	_, err = IntValue(1).Bool()
	assert.ErrorIs(t, err, ErrValueType)

	s, err := StringValue("hello").Str()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	s, err = EnumValue("Mono8").Str()
	require.NoError(t, err)
	assert.Equal(t, "Mono8", s)
	_, err = BoolValue(false).Str()
	assert.ErrorIs(t, err, ErrValueType)
}

func TestFeatureValueCoerce(t *testing.T) {
	v, err := IntValue(7).Coerce(KindFloat)
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind())

	v, err = StringValue("RGB8").Coerce(KindEnum)
	require.NoError(t, err)
	assert.Equal(t, KindEnum, v.Kind())

	_, err = StringValue("7").Coerce(KindInt)
	assert.ErrorIs(t, err, ErrValueType)
	_, err = FloatValue(1.5).Coerce(KindBool)
	assert.ErrorIs(t, err, ErrValueType)

	// Same-kind coercion is identity.
	v, err = FloatValue(2.5).Coerce(KindFloat)
	require.NoError(t, err)
	f, err := v.Float()
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
}

func TestFeatureValueString(t *testing.T) {
	assert.Equal(t, "42", IntValue(42).String())
	assert.Equal(t, "2.5", FloatValue(2.5).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "Mono8", EnumValue("Mono8").String())
}

func TestFeatureInfoInRange(t *testing.T) {
	gain := FeatureInfo{Name: "Gain", Kind: KindFloat, Min: 0, Max: 40}
	assert.True(t, gain.InRange(FloatValue(0)))
	assert.True(t, gain.InRange(FloatValue(40)))
	assert.False(t, gain.InRange(FloatValue(40.01)))
	assert.False(t, gain.InRange(FloatValue(-1)))

	// Unbounded numeric features accept anything.
	width := FeatureInfo{Name: "Width", Kind: KindInt}
	assert.True(t, width.InRange(IntValue(1 << 30)))

	pf := FeatureInfo{Name: "PixelFormat", Kind: KindEnum, Enum: []string{"Mono8", "RGB8"}}
	assert.True(t, pf.InRange(EnumValue("RGB8")))
	assert.False(t, pf.InRange(EnumValue("BGR8")))

	flip := FeatureInfo{Name: "ReverseX", Kind: KindBool}
	assert.True(t, flip.InRange(BoolValue(true)))
}

func TestPixelFormatBytesPerPixel(t *testing.T) {
	assert.Equal(t, 1, Mono8.BytesPerPixel())
	assert.Equal(t, 2, Mono16.BytesPerPixel())
	assert.Equal(t, 3, RGB8.BytesPerPixel())
	assert.Equal(t, 3, BGR8.BytesPerPixel())
	assert.Equal(t, 4, RGBA8.BytesPerPixel())
}
