// Package object defines anvil's runtime values: the tagged union
// mirroring the type system's shape, plus the line-oriented codec used
// where a structured stream meets an external process's byte stream.
package object

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anvilsh/anvil/core/types"
)

// Kind discriminates runtime value shapes. Streams have no value kind:
// at runtime a stream is a channel of Values, and a collected stream
// is a List.
type Kind int

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindRecord
)

// Field is one named field of a record value. Order is preserved.
type Field struct {
	Name string
	Val  Value
}

// Value is a runtime value. The zero value is Unit.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	List  []Value
	Rec   []Field
}

var UnitVal = Value{Kind: KindUnit}

func NewBool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NewInt(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func NewStr(s string) Value     { return Value{Kind: KindStr, Str: s} }
func NewList(vs []Value) Value  { return Value{Kind: KindList, List: vs} }
func NewRecord(fs []Field) Value { return Value{Kind: KindRecord, Rec: fs} }

// FieldValue looks up a record field by name.
func (v Value) FieldValue(name string) (Value, bool) {
	for _, f := range v.Rec {
		if f.Name == name {
			return f.Val, true
		}
	}
	return Value{}, false
}

// TypeOf computes the most specific static type describing v. Lists
// with mixed element types are List<Dynamic>.
func (v Value) TypeOf() types.Type {
	switch v.Kind {
	case KindUnit:
		return types.Unit
	case KindBool:
		return types.Bool
	case KindInt:
		return types.Int
	case KindFloat:
		return types.Float
	case KindStr:
		return types.Str
	case KindList:
		if len(v.List) == 0 {
			return types.List(types.Dynamic)
		}
		elem := v.List[0].TypeOf()
		for _, e := range v.List[1:] {
			if !e.TypeOf().Equal(elem) {
				return types.List(types.Dynamic)
			}
		}
		return types.List(elem)
	case KindRecord:
		fields := make([]types.Field, len(v.Rec))
		for i, f := range v.Rec {
			fields[i] = types.Field{Name: f.Name, Type: f.Val.TypeOf()}
		}
		return types.Record(fields...)
	default:
		return types.Dynamic
	}
}

// Equal reports value equality. Records compare as field sets, so two
// records with the same fields in different orders are equal; this is
// what survives a trip through the byte boundary.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindUnit:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindStr:
		return v.Str == o.Str
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.Rec) != len(o.Rec) {
			return false
		}
		for _, f := range v.Rec {
			of, ok := o.FieldValue(f.Name)
			if !ok || !f.Val.Equal(of) {
				return false
			}
		}
		return true
	}
	return false
}

// Less orders two values for sorting: numbers numerically across the
// Int/Float boundary, strings lexically, bools false before true.
func Less(a, b Value) (bool, error) {
	if af, ok := a.AsFloat(); ok {
		if bf, bok := b.AsFloat(); bok {
			return af < bf, nil
		}
	}
	if a.Kind != b.Kind {
		return false, fmt.Errorf("cannot order %s against %s", a.TypeOf(), b.TypeOf())
	}
	switch a.Kind {
	case KindStr:
		return a.Str < b.Str, nil
	case KindBool:
		return !a.Bool && b.Bool, nil
	}
	return false, fmt.Errorf("cannot order %s values", a.TypeOf())
}

// AsFloat widens Int to Float; other kinds report false.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// Truthy reports the Bool payload; only Bool values are truth-tested
// (the checker guarantees conditions are Bool).
func (v Value) Truthy() bool {
	return v.Kind == KindBool && v.Bool
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindUnit:
		return "()"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindStr:
		return v.Str
	case KindList:
		var parts []string
		for _, e := range v.List {
			parts = append(parts, e.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		var parts []string
		for _, f := range v.Rec {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("value(%d)", int(v.Kind))
}
