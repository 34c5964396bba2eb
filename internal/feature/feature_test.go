package feature

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqualIsTypeSensitive(t *testing.T) {
	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Int(2)))
	assert.False(t, String("1").Equal(Int(1)))
	assert.False(t, Int(1).Equal(Float(1)))
	assert.True(t, Float(2.5).Equal(Float(2.5)))
	assert.True(t, Null().Equal(Value{}))
	assert.False(t, Null().Equal(String("")))
	assert.True(t, Bool(true).Equal(Bool(true)))
	assert.False(t, Bool(true).Equal(Int(1)))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"30", Int(30)},
		{"-7", Int(-7)},
		{"30.5", Float(30.5)},
		{`"30"`, String("30")},
		{"'abc'", String("abc")},
		{"true", Bool(true)},
		{"FALSE", Bool(false)},
		{"null", Null()},
		{"Residential", String("Residential")},
		{`""`, String("")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseValue(tt.in)
			assert.True(t, tt.want.Equal(got), "got %v (%s)", got, got.Kind())
		})
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(int64(4))
	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Kind())

	v, err = FromAny([]byte("x"))
	require.NoError(t, err)
	s, ok := v.AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	v, err = FromAny(nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "0.25", Float(0.25).String())
	assert.Equal(t, "abc", String("abc").String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "null", Null().String())
}

func TestNewRecordSeedsIdentifier(t *testing.T) {
	extra := Attributes{"NAME": String("a"), IDField: String("spoofed")}
	r := NewRecord(10, orb.Point{1, 2}, extra)

	assert.Equal(t, int64(10), r.ID)
	v, ok := r.Attributes.Get(IDField)
	require.True(t, ok)
	assert.True(t, Int(10).Equal(v))
	assert.Equal(t, []string{"NAME", IDField}, r.Attributes.Names())

	// extra must not be mutated
	v, _ = extra.Get(IDField)
	assert.True(t, String("spoofed").Equal(v))
}
