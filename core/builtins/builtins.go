// Package builtins holds the typed built-in commands. Each file
// registers its commands in init; RegisterAll installs them all onto
// an engine at startup.
package builtins

import (
	"context"

	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/types"
)

type builtin struct {
	sig     types.Signature
	factory interp.Factory
}

var all []builtin

func register(sig types.Signature, factory interp.Factory) {
	all = append(all, builtin{sig: sig, factory: factory})
}

// RegisterAll installs every builtin onto the engine.
func RegisterAll(e *interp.Engine) error {
	for _, b := range all {
		if err := e.Register(b.sig, b.factory); err != nil {
			return err
		}
	}
	return nil
}

// send delivers one value downstream, honoring cancellation.
func send(ctx context.Context, out chan<- object.Value, v object.Value) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- v:
		return nil
	}
}

// collect buffers the whole input stream, for builtins that cannot
// work element-wise.
func collect(ctx context.Context, in <-chan object.Value) ([]object.Value, error) {
	var vals []object.Value
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case v, ok := <-in:
			if !ok {
				return vals, nil
			}
			vals = append(vals, v)
		}
	}
}
