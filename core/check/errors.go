package check

import (
	"fmt"

	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

// Code classifies a type error.
type Code int

const (
	CodeUndefinedVariable Code = iota
	CodeArgumentTypeMismatch
	CodePipeTypeMismatch
)

func (c Code) String() string {
	switch c {
	case CodeUndefinedVariable:
		return "UndefinedVariable"
	case CodeArgumentTypeMismatch:
		return "ArgumentTypeMismatch"
	case CodePipeTypeMismatch:
		return "PipeTypeMismatch"
	default:
		return fmt.Sprintf("TypeError(%d)", int(c))
	}
}

// TypeError is one collected checking failure. Check gathers every
// error across the tree before returning; a statement with any type
// error is never executed.
type TypeError struct {
	Code Code
	Pos  syntax.Position

	// Set for ArgumentTypeMismatch and PipeTypeMismatch.
	Expected types.Type
	Found    types.Type

	// Stage is the zero-based pipeline stage index for
	// PipeTypeMismatch.
	Stage int

	// Name is the variable or command involved.
	Name string

	// Context qualifies the mismatch site ("condition", "argument 2",
	// "operand of '+'").
	Context string
}

func (e *TypeError) Error() string {
	switch e.Code {
	case CodeUndefinedVariable:
		return fmt.Sprintf("%s: undefined variable %q", e.Pos, e.Name)
	case CodePipeTypeMismatch:
		if e.Stage == 0 {
			return fmt.Sprintf("%s: stage 0 expects %s but a pipeline head receives %s",
				e.Pos, e.Expected, e.Found)
		}
		return fmt.Sprintf("%s: stage %d produces %s but stage %d expects %s",
			e.Pos, e.Stage-1, e.Found, e.Stage, e.Expected)
	case CodeArgumentTypeMismatch:
		where := e.Context
		if where == "" {
			where = "argument"
		}
		return fmt.Sprintf("%s: %s: expected %s, found %s", e.Pos, where, e.Expected, e.Found)
	default:
		return fmt.Sprintf("%s: type error", e.Pos)
	}
}
