package types

import (
	"fmt"
	"strings"
)

// Param is one declared parameter of a builtin signature.
type Param struct {
	Name string
	Type Type

	// Variadic marks the final parameter as accepting zero or more
	// arguments of its type.
	Variadic bool

	// Predicate marks a parameter whose argument is not evaluated up
	// front: the checker type-checks the expression as Type (normally
	// Bool) inside a scope extended with the input stream's record
	// fields, and the runtime re-evaluates it per element.
	Predicate bool
}

// Signature declares what a builtin consumes from its upstream stage,
// the arguments it takes, and what it produces.
type Signature struct {
	Name        string
	Description string

	// Input is the type read from the previous pipeline stage. Unit
	// means the builtin is a source and must start a pipeline.
	Input  Type
	Params []Param
	Output Type

	// Refine, when set, lets a builtin narrow its declared Output
	// using the concrete input type and the literal word arguments
	// ("" for non-word arguments). `get name` uses this to produce
	// Stream<Str> instead of Stream<Dynamic>.
	Refine func(input Type, words []string) (Type, bool)
}

// String renders the signature for help output, e.g.
// "where: Stream<Record> -> Stream<Record>".
func (s Signature) String() string {
	var params []string
	for _, p := range s.Params {
		t := p.Type.String()
		if p.Variadic {
			t += "..."
		}
		params = append(params, fmt.Sprintf("%s:%s", p.Name, t))
	}
	if len(params) == 0 {
		return fmt.Sprintf("%s -> %s", s.Input, s.Output)
	}
	return fmt.Sprintf("%s -> %s -> %s", s.Input, strings.Join(params, " "), s.Output)
}
