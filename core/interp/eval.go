package interp

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/session"
	"github.com/anvilsh/anvil/core/syntax"
)

// evalExpr evaluates an expression against the session's variables,
// with an optional innermost frame of extra bindings (predicate
// fields). The checker has already vetted the types; failures here are
// runtime errors from Dynamic values or arithmetic.
func evalExpr(ctx context.Context, expr syntax.Expr, sess *session.Session, fields map[string]object.Value) (object.Value, error) {
	switch e := expr.(type) {
	case *syntax.Literal:
		switch e.Kind {
		case syntax.LitBool:
			return object.NewBool(e.Bool), nil
		case syntax.LitInt:
			return object.NewInt(e.Int), nil
		case syntax.LitFloat:
			return object.NewFloat(e.Float), nil
		default:
			return object.NewStr(e.Str), nil
		}

	case *syntax.VarRef:
		if fields != nil {
			if v, ok := fields[e.Name]; ok {
				return v, nil
			}
		}
		if v, ok := sess.Resolve(e.Name); ok {
			return v, nil
		}
		return object.Value{}, fmt.Errorf("undefined variable %q", e.Name)

	case *syntax.FieldAccess:
		x, err := evalExpr(ctx, e.X, sess, fields)
		if err != nil {
			return object.Value{}, err
		}
		if x.Kind != object.KindRecord {
			return object.Value{}, fmt.Errorf("%s has no fields", x.TypeOf())
		}
		v, ok := x.FieldValue(e.Name)
		if !ok {
			return object.Value{}, fmt.Errorf("record has no field %q", e.Name)
		}
		return v, nil

	case *syntax.Unary:
		x, err := evalExpr(ctx, e.X, sess, fields)
		if err != nil {
			return object.Value{}, err
		}
		if e.Op == '!' {
			if x.Kind != object.KindBool {
				return object.Value{}, fmt.Errorf("'!' needs a Bool, got %s", x.TypeOf())
			}
			return object.NewBool(!x.Bool), nil
		}
		switch x.Kind {
		case object.KindInt:
			return object.NewInt(-x.Int), nil
		case object.KindFloat:
			return object.NewFloat(-x.Float), nil
		}
		return object.Value{}, fmt.Errorf("'-' needs a number, got %s", x.TypeOf())

	case *syntax.Binary:
		return evalBinary(ctx, e, sess, fields)

	case *syntax.ListLit:
		elems := make([]object.Value, len(e.Elems))
		for i, el := range e.Elems {
			v, err := evalExpr(ctx, el, sess, fields)
			if err != nil {
				return object.Value{}, err
			}
			elems[i] = v
		}
		return object.NewList(elems), nil

	case *syntax.RecordLit:
		fs := make([]object.Field, len(e.Fields))
		for i, f := range e.Fields {
			v, err := evalExpr(ctx, f.Val, sess, fields)
			if err != nil {
				return object.Value{}, err
			}
			fs[i] = object.Field{Name: f.Name, Val: v}
		}
		return object.NewRecord(fs), nil

	case *syntax.Interp:
		var sb strings.Builder
		for _, part := range e.Parts {
			v, err := evalExpr(ctx, part, sess, fields)
			if err != nil {
				return object.Value{}, err
			}
			sb.WriteString(v.String())
		}
		return object.NewStr(sb.String()), nil
	}

	return object.Value{}, fmt.Errorf("unevaluable expression at %s", expr.Pos())
}

func evalBinary(ctx context.Context, e *syntax.Binary, sess *session.Session, fields map[string]object.Value) (object.Value, error) {
	// && and || short-circuit.
	if e.Op == syntax.OpAnd || e.Op == syntax.OpOr {
		x, err := evalExpr(ctx, e.X, sess, fields)
		if err != nil {
			return object.Value{}, err
		}
		if x.Kind != object.KindBool {
			return object.Value{}, fmt.Errorf("'%s' needs Bool operands, got %s", e.Op, x.TypeOf())
		}
		if e.Op == syntax.OpAnd && !x.Bool {
			return object.NewBool(false), nil
		}
		if e.Op == syntax.OpOr && x.Bool {
			return object.NewBool(true), nil
		}
		y, err := evalExpr(ctx, e.Y, sess, fields)
		if err != nil {
			return object.Value{}, err
		}
		if y.Kind != object.KindBool {
			return object.Value{}, fmt.Errorf("'%s' needs Bool operands, got %s", e.Op, y.TypeOf())
		}
		return object.NewBool(y.Bool), nil
	}

	x, err := evalExpr(ctx, e.X, sess, fields)
	if err != nil {
		return object.Value{}, err
	}
	y, err := evalExpr(ctx, e.Y, sess, fields)
	if err != nil {
		return object.Value{}, err
	}

	switch e.Op {
	case syntax.OpEq:
		return object.NewBool(valueEq(x, y)), nil
	case syntax.OpNe:
		return object.NewBool(!valueEq(x, y)), nil
	case syntax.OpLt, syntax.OpLe, syntax.OpGt, syntax.OpGe:
		return compareValues(e.Op, x, y)
	case syntax.OpAdd:
		if x.Kind == object.KindStr && y.Kind == object.KindStr {
			return object.NewStr(x.Str + y.Str), nil
		}
		return arith(e.Op, x, y)
	default:
		return arith(e.Op, x, y)
	}
}

// valueEq compares across the Int/Float widening boundary so 1 == 1.0.
func valueEq(x, y object.Value) bool {
	if xf, ok := x.AsFloat(); ok {
		if yf, yok := y.AsFloat(); yok {
			return xf == yf
		}
		return false
	}
	return x.Equal(y)
}

func compareValues(op syntax.BinOp, x, y object.Value) (object.Value, error) {
	if x.Kind == object.KindStr && y.Kind == object.KindStr {
		return orderResult(op, strings.Compare(x.Str, y.Str)), nil
	}
	xf, xok := x.AsFloat()
	yf, yok := y.AsFloat()
	if !xok || !yok {
		return object.Value{}, fmt.Errorf("cannot compare %s with %s", x.TypeOf(), y.TypeOf())
	}
	switch {
	case xf < yf:
		return orderResult(op, -1), nil
	case xf > yf:
		return orderResult(op, 1), nil
	default:
		return orderResult(op, 0), nil
	}
}

func orderResult(op syntax.BinOp, cmp int) object.Value {
	switch op {
	case syntax.OpLt:
		return object.NewBool(cmp < 0)
	case syntax.OpLe:
		return object.NewBool(cmp <= 0)
	case syntax.OpGt:
		return object.NewBool(cmp > 0)
	default:
		return object.NewBool(cmp >= 0)
	}
}

func arith(op syntax.BinOp, x, y object.Value) (object.Value, error) {
	if x.Kind == object.KindInt && y.Kind == object.KindInt {
		switch op {
		case syntax.OpAdd:
			return object.NewInt(x.Int + y.Int), nil
		case syntax.OpSub:
			return object.NewInt(x.Int - y.Int), nil
		case syntax.OpMul:
			return object.NewInt(x.Int * y.Int), nil
		case syntax.OpDiv:
			if y.Int == 0 {
				return object.Value{}, fmt.Errorf("division by zero")
			}
			return object.NewInt(x.Int / y.Int), nil
		}
	}

	xf, xok := x.AsFloat()
	yf, yok := y.AsFloat()
	if !xok || !yok {
		return object.Value{}, fmt.Errorf("'%s' needs numbers, got %s and %s", op, x.TypeOf(), y.TypeOf())
	}
	switch op {
	case syntax.OpAdd:
		return object.NewFloat(xf + yf), nil
	case syntax.OpSub:
		return object.NewFloat(xf - yf), nil
	case syntax.OpMul:
		return object.NewFloat(xf * yf), nil
	case syntax.OpDiv:
		if yf == 0 {
			return object.Value{}, fmt.Errorf("division by zero")
		}
		return object.NewFloat(xf / yf), nil
	}
	return object.Value{}, fmt.Errorf("unknown operator '%s'", op)
}
