package builtins

import (
	"context"

	"github.com/anvilsh/anvil/core/foreign"
	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/types"
)

func init() {
	register(types.Signature{
		Name:        "star",
		Description: "Evaluate a Starlark expression over the input.",
		Input:       types.Dynamic,
		Params:      []types.Param{{Name: "code", Type: types.Str}},
		Output:      types.Dynamic,
	}, starCmd)
}

func starCmd(call *interp.Call) interp.Task {
	code := call.Args[0].Str
	return func(ctx context.Context, io interp.StageIO) error {
		// A stream input crosses the boundary as a list; a missing
		// input as a unit.
		input := object.UnitVal
		if io.In != nil {
			vals, err := collect(ctx, io.In)
			if err != nil {
				return err
			}
			switch len(vals) {
			case 0:
			case 1:
				input = vals[0]
			default:
				input = object.NewList(vals)
			}
		}
		out, err := foreign.Eval(code, input)
		if err != nil {
			return err
		}
		return send(ctx, io.Out, out)
	}
}
