package builtins

import (
	"context"
	"strings"

	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/types"
)

func init() {
	register(types.Signature{
		Name:        "echo",
		Description: "Emit each argument as a string.",
		Input:       types.Unit,
		Params:      []types.Param{{Name: "args", Type: types.Dynamic, Variadic: true}},
		Output:      types.Stream(types.Str),
	}, echoCmd)

	register(types.Signature{
		Name:        "to-upper",
		Description: "Uppercase each input string.",
		Input:       types.Stream(types.Str),
		Output:      types.Stream(types.Str),
	}, mapStrings(strings.ToUpper))

	register(types.Signature{
		Name:        "to-lower",
		Description: "Lowercase each input string.",
		Input:       types.Stream(types.Str),
		Output:      types.Stream(types.Str),
	}, mapStrings(strings.ToLower))
}

func echoCmd(call *interp.Call) interp.Task {
	args := call.Args
	return func(ctx context.Context, io interp.StageIO) error {
		for _, a := range args {
			if err := send(ctx, io.Out, object.NewStr(a.String())); err != nil {
				return err
			}
		}
		return nil
	}
}

func mapStrings(f func(string) string) interp.Factory {
	return func(call *interp.Call) interp.Task {
		return func(ctx context.Context, io interp.StageIO) error {
			for v := range io.In {
				if err := send(ctx, io.Out, object.NewStr(f(v.Str))); err != nil {
					return err
				}
			}
			return nil
		}
	}
}
