package object

import (
	"testing"

	"github.com/anvilsh/anvil/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf(t *testing.T) {
	cases := []struct {
		name     string
		val      Value
		expected types.Type
	}{
		{"unit", UnitVal, types.Unit},
		{"int", NewInt(42), types.Int},
		{"str", NewStr("hi"), types.Str},
		{"homogeneous list", NewList([]Value{NewInt(1), NewInt(2)}), types.List(types.Int)},
		{"mixed list", NewList([]Value{NewInt(1), NewStr("a")}), types.List(types.Dynamic)},
		{
			"record",
			NewRecord([]Field{{"name", NewStr("a")}, {"size", NewInt(3)}}),
			types.Record(types.Field{Name: "name", Type: types.Str}, types.Field{Name: "size", Type: types.Int}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.val.TypeOf())
		})
	}
}

func TestRecordEqualityIgnoresFieldOrder(t *testing.T) {
	a := NewRecord([]Field{{"x", NewInt(1)}, {"y", NewInt(2)}})
	b := NewRecord([]Field{{"y", NewInt(2)}, {"x", NewInt(1)}})
	assert.True(t, a.Equal(b))

	c := NewRecord([]Field{{"x", NewInt(1)}, {"y", NewInt(3)}})
	assert.False(t, a.Equal(c))
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		val      Value
		expected string
	}{
		{UnitVal, "()"},
		{NewBool(true), "true"},
		{NewInt(-3), "-3"},
		{NewFloat(1.5), "1.5"},
		{NewStr("plain"), "plain"},
		{NewList([]Value{NewInt(1), NewStr("a")}), "[1, a]"},
		{NewRecord([]Field{{"n", NewInt(1)}}), "{n: 1}"},
	}

	for _, tc := range cases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.val.String())
		})
	}
}

func TestEncodeLineStrIsRaw(t *testing.T) {
	assert.Equal(t, "hi", string(EncodeLine(NewStr("hi"))))
	assert.Equal(t, "42", string(EncodeLine(NewInt(42))))
	assert.Equal(t, "true", string(EncodeLine(NewBool(true))))
}

func TestDecodeLineFallsBackToStr(t *testing.T) {
	assert.Equal(t, NewStr("not json at all"), DecodeLine([]byte("not json at all")))
	assert.Equal(t, NewInt(7), DecodeLine([]byte("7")))
	assert.Equal(t, NewFloat(7.5), DecodeLine([]byte("7.5")))
}

func TestRoundTripRecordStream(t *testing.T) {
	// The property the byte boundary guarantees: a Stream<Record> of
	// primitive-field records survives serialize/deserialize intact.
	records := []Value{
		NewRecord([]Field{{"name", NewStr("a.txt")}, {"size", NewInt(120)}, {"hidden", NewBool(false)}}),
		NewRecord([]Field{{"name", NewStr("b log")}, {"size", NewInt(0)}, {"hidden", NewBool(true)}}),
		NewRecord([]Field{{"ratio", NewFloat(0.5)}, {"label", NewStr(`quo"ted`)}}),
	}

	for _, rec := range records {
		line := EncodeLine(rec)
		got := DecodeLine(line)
		require.True(t, rec.Equal(got), "round trip changed %s into %s", rec, got)
	}
}

func TestRoundTripNested(t *testing.T) {
	v := NewRecord([]Field{
		{"tags", NewList([]Value{NewStr("x"), NewStr("y")})},
		{"meta", NewRecord([]Field{{"depth", NewInt(2)}})},
	})
	assert.True(t, v.Equal(DecodeLine(EncodeLine(v))))
}
