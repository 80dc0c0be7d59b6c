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
		Name:        "env",
		Description: "List environment variables as records.",
		Input:       types.Unit,
		Output: types.Stream(types.Record(
			types.Field{Name: "name", Type: types.Str},
			types.Field{Name: "value", Type: types.Str},
		)),
	}, envCmd)

	register(types.Signature{
		Name:        "export",
		Description: "Set an environment variable.",
		Input:       types.Unit,
		Params: []types.Param{
			{Name: "name", Type: types.Str},
			{Name: "value", Type: types.Dynamic},
		},
		Output: types.Unit,
	}, exportCmd)

	register(types.Signature{
		Name:        "unset",
		Description: "Remove an environment variable.",
		Input:       types.Unit,
		Params:      []types.Param{{Name: "name", Type: types.Str}},
		Output:      types.Unit,
	}, unsetCmd)
}

func envCmd(call *interp.Call) interp.Task {
	environ := call.Snap.Environ
	return func(ctx context.Context, io interp.StageIO) error {
		for _, kv := range environ {
			name, value, _ := strings.Cut(kv, "=")
			rec := object.NewRecord([]object.Field{
				{Name: "name", Val: object.NewStr(name)},
				{Name: "value", Val: object.NewStr(value)},
			})
			if err := send(ctx, io.Out, rec); err != nil {
				return err
			}
		}
		return nil
	}
}

func exportCmd(call *interp.Call) interp.Task {
	name, value := call.Args[0].Str, call.Args[1].String()
	return func(ctx context.Context, io interp.StageIO) error {
		call.Session.Setenv(name, value)
		return nil
	}
}

func unsetCmd(call *interp.Call) interp.Task {
	name := call.Args[0].Str
	return func(ctx context.Context, io interp.StageIO) error {
		call.Session.Unsetenv(name)
		return nil
	}
}
