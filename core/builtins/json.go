package builtins

import (
	"context"
	"fmt"

	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/types"
)

func init() {
	register(types.Signature{
		Name:        "to-json",
		Description: "Serialize each input value as a JSON line.",
		Input:       types.Stream(types.Var("T")),
		Output:      types.Stream(types.Str),
	}, toJSONCmd)

	register(types.Signature{
		Name:        "from-json",
		Description: "Parse each input line as a JSON value.",
		Input:       types.Stream(types.Str),
		Output:      types.Stream(types.Dynamic),
	}, fromJSONCmd)
}

func toJSONCmd(call *interp.Call) interp.Task {
	return func(ctx context.Context, io interp.StageIO) error {
		for v := range io.In {
			data, err := object.EncodeJSON(v)
			if err != nil {
				return fmt.Errorf("to-json: %w", err)
			}
			if err := send(ctx, io.Out, object.NewStr(string(data))); err != nil {
				return err
			}
		}
		return nil
	}
}

func fromJSONCmd(call *interp.Call) interp.Task {
	return func(ctx context.Context, io interp.StageIO) error {
		for v := range io.In {
			parsed, err := object.DecodeJSON(v.Str)
			if err != nil {
				return fmt.Errorf("from-json: %w", err)
			}
			if err := send(ctx, io.Out, parsed); err != nil {
				return err
			}
		}
		return nil
	}
}
