// Package foreign is the dynamic boundary: it evaluates Starlark
// expressions over values that crossed out of the typed pipeline as
// Dynamic. Every mismatch on this side of the boundary is a runtime
// error by construction.
package foreign

import (
	"fmt"

	"go.starlark.net/starlark"
	starsyntax "go.starlark.net/syntax"

	"github.com/anvilsh/anvil/core/object"
)

// Eval evaluates a single Starlark expression with the given value
// bound as `input` and converts the result back.
func Eval(code string, input object.Value) (object.Value, error) {
	in, err := toStarlark(input)
	if err != nil {
		return object.Value{}, err
	}

	thread := &starlark.Thread{Name: "star"}
	env := starlark.StringDict{"input": in}
	out, err := starlark.EvalOptions(&starsyntax.FileOptions{}, thread, "<star>", code, env)
	if err != nil {
		return object.Value{}, fmt.Errorf("star: %w", err)
	}
	return fromStarlark(out)
}

func toStarlark(v object.Value) (starlark.Value, error) {
	switch v.Kind {
	case object.KindUnit:
		return starlark.None, nil
	case object.KindBool:
		return starlark.Bool(v.Bool), nil
	case object.KindInt:
		return starlark.MakeInt64(v.Int), nil
	case object.KindFloat:
		return starlark.Float(v.Float), nil
	case object.KindStr:
		return starlark.String(v.Str), nil
	case object.KindList:
		elems := make([]starlark.Value, len(v.List))
		for i, e := range v.List {
			se, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems[i] = se
		}
		return starlark.NewList(elems), nil
	case object.KindRecord:
		d := starlark.NewDict(len(v.Rec))
		for _, f := range v.Rec {
			sv, err := toStarlark(f.Val)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(f.Name), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	}
	return nil, fmt.Errorf("star: unconvertible value kind")
}

func fromStarlark(v starlark.Value) (object.Value, error) {
	switch sv := v.(type) {
	case starlark.NoneType:
		return object.UnitVal, nil
	case starlark.Bool:
		return object.NewBool(bool(sv)), nil
	case starlark.Int:
		n, ok := sv.Int64()
		if !ok {
			return object.Value{}, fmt.Errorf("star: integer result out of range")
		}
		return object.NewInt(n), nil
	case starlark.Float:
		return object.NewFloat(float64(sv)), nil
	case starlark.String:
		return object.NewStr(string(sv)), nil
	case *starlark.List:
		elems := make([]object.Value, sv.Len())
		for i := 0; i < sv.Len(); i++ {
			e, err := fromStarlark(sv.Index(i))
			if err != nil {
				return object.Value{}, err
			}
			elems[i] = e
		}
		return object.NewList(elems), nil
	case starlark.Tuple:
		elems := make([]object.Value, sv.Len())
		for i := 0; i < sv.Len(); i++ {
			e, err := fromStarlark(sv.Index(i))
			if err != nil {
				return object.Value{}, err
			}
			elems[i] = e
		}
		return object.NewList(elems), nil
	case *starlark.Dict:
		fields := make([]object.Field, 0, sv.Len())
		for _, item := range sv.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return object.Value{}, fmt.Errorf("star: dict key %s is not a string", item[0].Type())
			}
			val, err := fromStarlark(item[1])
			if err != nil {
				return object.Value{}, err
			}
			fields = append(fields, object.Field{Name: string(key), Val: val})
		}
		return object.NewRecord(fields), nil
	}
	return object.Value{}, fmt.Errorf("star: result type %s does not cross the boundary", v.Type())
}
