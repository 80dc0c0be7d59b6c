package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	cases := []struct {
		typ      Type
		expected string
	}{
		{Unit, "Unit"},
		{Int, "Int"},
		{Stream(Str), "Stream<Str>"},
		{List(Stream(Float)), "List<Stream<Float>>"},
		{Record(Field{"name", Str}, Field{"size", Int}), "Record{name:Str, size:Int}"},
		{Var("T"), "T"},
	}

	for _, tc := range cases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.typ.String())
		})
	}
}

func TestWideningIsOneDirectional(t *testing.T) {
	assert.True(t, Int.WidensTo(Float))
	assert.False(t, Float.WidensTo(Int))

	// Every concrete type widens to Dynamic, never the reverse.
	for _, typ := range []Type{Unit, Bool, Int, Float, Str, Bytes, Stream(Int), Record()} {
		assert.True(t, typ.WidensTo(Dynamic), "%s should widen to Dynamic", typ)
		if typ.Kind != KindDynamic {
			assert.False(t, Dynamic.WidensTo(typ), "Dynamic should not widen to %s", typ)
		}
	}
}

func TestWideningIsCovariant(t *testing.T) {
	assert.True(t, Stream(Int).WidensTo(Stream(Float)))
	assert.True(t, List(Int).WidensTo(List(Dynamic)))
	assert.False(t, Stream(Float).WidensTo(Stream(Int)))

	rec := Record(Field{"size", Int})
	wider := Record(Field{"size", Float})
	assert.True(t, rec.WidensTo(wider))
	assert.False(t, wider.WidensTo(rec))

	// Field sets must match exactly.
	other := Record(Field{"len", Int})
	assert.False(t, rec.WidensTo(other))
}

func TestUnify(t *testing.T) {
	b := Bindings{}
	require.True(t, Unify(Stream(Var("T")), Stream(Record(Field{"name", Str})), b))
	assert.Equal(t, Record(Field{"name", Str}), b["T"])

	out := Substitute(Stream(Var("T")), b)
	assert.Equal(t, Stream(Record(Field{"name", Str})), out)
}

func TestUnifyWidens(t *testing.T) {
	// A concrete signature side admits widening from the actual side.
	assert.True(t, Unify(Stream(Float), Stream(Int), Bindings{}))
	assert.False(t, Unify(Stream(Int), Stream(Float), Bindings{}))
}

func TestSubstituteUnbound(t *testing.T) {
	assert.Equal(t, Stream(Dynamic), Substitute(Stream(Var("T")), Bindings{}))
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry()
	sig := Signature{Name: "echo", Input: Unit, Output: Stream(Str)}

	require.NoError(t, reg.Register(sig))
	err := reg.Register(sig)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateBuiltin)

	got, ok := reg.LookupBuiltin("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name)
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Signature{Name: "ls"}))
	reg.Unregister("ls")

	_, ok := reg.LookupBuiltin("ls")
	assert.False(t, ok)
}

func TestScopeShadowing(t *testing.T) {
	s := NewScope()
	s.Bind("x", Int)

	s.Push()
	s.Bind("x", Str)
	got, ok := s.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, Str, got)

	s.Pop()
	got, ok = s.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, Int, got)
}

func TestScopeBindingUnresolvableAfterPop(t *testing.T) {
	s := NewScope()
	s.Push()
	s.Bind("inner", Bool)
	s.Pop()

	_, ok := s.Resolve("inner")
	assert.False(t, ok)
}

func TestScopeRootFrameNeverPopped(t *testing.T) {
	s := NewScope()
	s.Bind("x", Int)
	s.Pop()
	s.Pop()

	_, ok := s.Resolve("x")
	assert.True(t, ok)
	assert.Equal(t, 1, s.Depth())
}

func TestScopeAssignUpdatesResolvedFrame(t *testing.T) {
	s := NewScope()
	s.Bind("x", Int)

	s.Push()
	s.Assign("x", Float)
	s.Bind("y", Str)
	s.Pop()

	x, ok := s.Resolve("x")
	require.True(t, ok)
	assert.True(t, Float.Equal(x))

	_, ok = s.Resolve("y")
	assert.False(t, ok)
}
