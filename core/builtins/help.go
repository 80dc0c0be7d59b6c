package builtins

import (
	"context"

	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/types"
)

func init() {
	register(types.Signature{
		Name:        "help",
		Description: "List the registered builtins and their signatures.",
		Input:       types.Unit,
		Output: types.Stream(types.Record(
			types.Field{Name: "name", Type: types.Str},
			types.Field{Name: "signature", Type: types.Str},
			types.Field{Name: "description", Type: types.Str},
		)),
	}, helpCmd)
}

func helpCmd(call *interp.Call) interp.Task {
	reg := call.Registry
	return func(ctx context.Context, io interp.StageIO) error {
		for _, name := range reg.Names() {
			sig, _ := reg.LookupBuiltin(name)
			rec := object.NewRecord([]object.Field{
				{Name: "name", Val: object.NewStr(name)},
				{Name: "signature", Val: object.NewStr(sig.String())},
				{Name: "description", Val: object.NewStr(sig.Description)},
			})
			if err := send(ctx, io.Out, rec); err != nil {
				return err
			}
		}
		return nil
	}
}
