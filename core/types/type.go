// Package types defines anvil's pipe type system: the Type variant,
// the widening relation, signature unification, builtin signatures and
// the scoped type environment consulted by the checker.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the closed set of type shapes.
type Kind int

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindRecord
	KindStream
	KindBytes
	KindDynamic
	// KindVar is a signature type variable (e.g. the T in
	// "first : (Stream<T>, Int) -> Stream<T>"). It never appears in a
	// checked program's annotations, only in builtin signatures.
	KindVar
)

// Field is one named field of a record type. Order is significant.
type Field struct {
	Name string
	Type Type
}

// Type is a value type. The zero value is Unit.
type Type struct {
	Kind   Kind
	Elem   *Type   // List, Stream
	Fields []Field // Record
	Name   string  // Var
}

var (
	Unit    = Type{Kind: KindUnit}
	Bool    = Type{Kind: KindBool}
	Int     = Type{Kind: KindInt}
	Float   = Type{Kind: KindFloat}
	Str     = Type{Kind: KindStr}
	Bytes   = Type{Kind: KindBytes}
	Dynamic = Type{Kind: KindDynamic}
)

// List returns the type of a list with the given element type.
func List(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

// Stream returns the type of a lazily produced sequence of elem values.
func Stream(elem Type) Type {
	return Type{Kind: KindStream, Elem: &elem}
}

// Record returns a record type with the given ordered fields.
func Record(fields ...Field) Type {
	return Type{Kind: KindRecord, Fields: fields}
}

// Var returns a signature type variable.
func Var(name string) Type {
	return Type{Kind: KindVar, Name: name}
}

func (t Type) String() string {
	switch t.Kind {
	case KindUnit:
		return "Unit"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindStr:
		return "Str"
	case KindBytes:
		return "Bytes"
	case KindDynamic:
		return "Dynamic"
	case KindList:
		return fmt.Sprintf("List<%s>", t.Elem)
	case KindStream:
		return fmt.Sprintf("Stream<%s>", t.Elem)
	case KindVar:
		return t.Name
	case KindRecord:
		var sb strings.Builder
		sb.WriteString("Record{")
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(":")
			sb.WriteString(f.Type.String())
		}
		sb.WriteString("}")
		return sb.String()
	default:
		return fmt.Sprintf("type(%d)", int(t.Kind))
	}
}

// Equal reports structural type equality. Record field order matters.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindList, KindStream:
		return t.Elem.Equal(*o.Elem)
	case KindRecord:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if f.Name != o.Fields[i].Name || !f.Type.Equal(o.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindVar:
		return t.Name == o.Name
	default:
		return true
	}
}

// WidensTo reports whether a value of type t may flow where a value of
// type to is expected. The relation is one-directional: equality, Int
// to Float, any concrete type to Dynamic, and covariantly through List,
// Stream and record fields. Dynamic never widens to a concrete type.
func (t Type) WidensTo(to Type) bool {
	if to.Kind == KindDynamic {
		return true
	}
	if t.Kind == KindInt && to.Kind == KindFloat {
		return true
	}
	if t.Kind != to.Kind {
		return false
	}
	switch t.Kind {
	case KindList, KindStream:
		return t.Elem.WidensTo(*to.Elem)
	case KindRecord:
		if len(t.Fields) != len(to.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if f.Name != to.Fields[i].Name || !f.Type.WidensTo(to.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return t.Equal(to)
	}
}

// FieldType looks up a record field by name.
func (t Type) FieldType(name string) (Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Type{}, false
}

// Bindings maps signature type variables to concrete types.
type Bindings map[string]Type

// Unify matches a concrete actual type against a signature type that
// may contain type variables, extending b. Widening is permitted where
// the signature side is concrete, so Stream<Int> unifies with
// Stream<Float> as well as with Stream<T>.
func Unify(sig, actual Type, b Bindings) bool {
	switch sig.Kind {
	case KindVar:
		if bound, ok := b[sig.Name]; ok {
			return actual.Equal(bound) || actual.WidensTo(bound)
		}
		b[sig.Name] = actual
		return true
	case KindList, KindStream:
		if actual.Kind != sig.Kind {
			return actual.WidensTo(sig)
		}
		return Unify(*sig.Elem, *actual.Elem, b)
	case KindRecord:
		if actual.Kind != KindRecord || len(actual.Fields) != len(sig.Fields) {
			return actual.WidensTo(sig)
		}
		for i, f := range sig.Fields {
			if actual.Fields[i].Name != f.Name {
				return false
			}
			if !Unify(f.Type, actual.Fields[i].Type, b) {
				return false
			}
		}
		return true
	default:
		return actual.Equal(sig) || actual.WidensTo(sig)
	}
}

// Substitute replaces type variables in t with their bindings. Unbound
// variables become Dynamic.
func Substitute(t Type, b Bindings) Type {
	switch t.Kind {
	case KindVar:
		if bound, ok := b[t.Name]; ok {
			return bound
		}
		return Dynamic
	case KindList, KindStream:
		elem := Substitute(*t.Elem, b)
		return Type{Kind: t.Kind, Elem: &elem}
	case KindRecord:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: f.Name, Type: Substitute(f.Type, b)}
		}
		return Type{Kind: KindRecord, Fields: fields}
	default:
		return t
	}
}

// SortedFieldNames returns the record's field names in lexical order,
// for stable diagnostics.
func (t Type) SortedFieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
