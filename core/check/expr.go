package check

import (
	"fmt"

	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

// checkExpr infers an expression's type bottom-up and records it in
// the side table. On error it reports and recovers with Dynamic so one
// mistake does not cascade into spurious downstream errors.
func (c *Checker) checkExpr(expr syntax.Expr, res *Result) types.Type {
	t := c.inferExpr(expr, res)
	res.Types[expr] = t
	return t
}

func (c *Checker) inferExpr(expr syntax.Expr, res *Result) types.Type {
	switch e := expr.(type) {
	case *syntax.Literal:
		switch e.Kind {
		case syntax.LitBool:
			return types.Bool
		case syntax.LitInt:
			return types.Int
		case syntax.LitFloat:
			return types.Float
		default:
			return types.Str
		}

	case *syntax.VarRef:
		if t, ok := c.scope.Resolve(e.Name); ok {
			return t
		}
		c.errf(res, &TypeError{Code: CodeUndefinedVariable, Pos: e.P, Name: e.Name})
		return types.Dynamic

	case *syntax.FieldAccess:
		xt := c.checkExpr(e.X, res)
		switch xt.Kind {
		case types.KindDynamic:
			return types.Dynamic
		case types.KindRecord:
			if ft, ok := xt.FieldType(e.Name); ok {
				return ft
			}
			c.errf(res, &TypeError{
				Code:    CodeUndefinedVariable,
				Pos:     e.P,
				Name:    e.Name,
				Context: fmt.Sprintf("field of %s", xt),
			})
			return types.Dynamic
		default:
			c.errf(res, &TypeError{
				Code:     CodeArgumentTypeMismatch,
				Pos:      e.P,
				Expected: types.Record(),
				Found:    xt,
				Context:  "field access",
			})
			return types.Dynamic
		}

	case *syntax.Binary:
		return c.inferBinary(e, res)

	case *syntax.Unary:
		xt := c.checkExpr(e.X, res)
		if xt.Kind == types.KindDynamic {
			return types.Dynamic
		}
		if e.Op == '!' {
			if xt.Kind != types.KindBool {
				c.errf(res, &TypeError{
					Code:     CodeArgumentTypeMismatch,
					Pos:      e.P,
					Expected: types.Bool,
					Found:    xt,
					Context:  "operand of '!'",
				})
			}
			return types.Bool
		}
		if xt.Kind != types.KindInt && xt.Kind != types.KindFloat {
			c.errf(res, &TypeError{
				Code:     CodeArgumentTypeMismatch,
				Pos:      e.P,
				Expected: types.Float,
				Found:    xt,
				Context:  "operand of '-'",
			})
			return types.Dynamic
		}
		return xt

	case *syntax.ListLit:
		if len(e.Elems) == 0 {
			return types.List(types.Dynamic)
		}
		elem := c.checkExpr(e.Elems[0], res)
		for _, el := range e.Elems[1:] {
			t := c.checkExpr(el, res)
			if !t.Equal(elem) {
				elem = types.Dynamic
			}
		}
		return types.List(elem)

	case *syntax.RecordLit:
		fields := make([]types.Field, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = types.Field{Name: f.Name, Type: c.checkExpr(f.Val, res)}
		}
		return types.Record(fields...)

	case *syntax.Interp:
		for _, part := range e.Parts {
			c.checkExpr(part, res)
		}
		return types.Str
	}

	return types.Dynamic
}

func (c *Checker) inferBinary(e *syntax.Binary, res *Result) types.Type {
	xt := c.checkExpr(e.X, res)
	yt := c.checkExpr(e.Y, res)

	dynamic := xt.Kind == types.KindDynamic || yt.Kind == types.KindDynamic

	numeric := func(t types.Type) bool {
		return t.Kind == types.KindInt || t.Kind == types.KindFloat
	}

	switch e.Op {
	case syntax.OpAnd, syntax.OpOr:
		if !dynamic && (xt.Kind != types.KindBool || yt.Kind != types.KindBool) {
			c.operandErr(e, xt, yt, types.Bool, res)
		}
		return types.Bool

	case syntax.OpEq, syntax.OpNe:
		if !dynamic && !xt.Equal(yt) && !(numeric(xt) && numeric(yt)) {
			c.operandErr(e, xt, yt, xt, res)
		}
		return types.Bool

	case syntax.OpLt, syntax.OpLe, syntax.OpGt, syntax.OpGe:
		comparable := (numeric(xt) && numeric(yt)) ||
			(xt.Kind == types.KindStr && yt.Kind == types.KindStr)
		if !dynamic && !comparable {
			c.operandErr(e, xt, yt, types.Float, res)
		}
		return types.Bool

	case syntax.OpAdd:
		if xt.Kind == types.KindStr && yt.Kind == types.KindStr {
			return types.Str
		}
		fallthrough
	case syntax.OpSub, syntax.OpMul, syntax.OpDiv:
		if dynamic {
			return types.Dynamic
		}
		if !numeric(xt) || !numeric(yt) {
			c.operandErr(e, xt, yt, types.Float, res)
			return types.Dynamic
		}
		if xt.Kind == types.KindFloat || yt.Kind == types.KindFloat {
			return types.Float
		}
		return types.Int
	}

	return types.Dynamic
}

func (c *Checker) operandErr(e *syntax.Binary, xt, yt, expected types.Type, res *Result) {
	found := xt
	if xt.Equal(expected) || (xt.Kind == types.KindInt && expected.Kind == types.KindFloat) {
		found = yt
	}
	c.errf(res, &TypeError{
		Code:     CodeArgumentTypeMismatch,
		Pos:      e.P,
		Expected: expected,
		Found:    found,
		Context:  fmt.Sprintf("operand of '%s'", e.Op),
	})
}
