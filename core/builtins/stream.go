package builtins

import (
	"context"
	"fmt"
	"sort"

	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/types"
)

func init() {
	register(types.Signature{
		Name:        "where",
		Description: "Keep the elements for which the predicate holds.",
		Input:       types.Stream(types.Var("T")),
		Params:      []types.Param{{Name: "predicate", Type: types.Bool, Predicate: true}},
		Output:      types.Stream(types.Var("T")),
	}, whereCmd)

	register(types.Signature{
		Name:        "first",
		Description: "Keep the first n elements.",
		Input:       types.Stream(types.Var("T")),
		Params:      []types.Param{{Name: "n", Type: types.Int}},
		Output:      types.Stream(types.Var("T")),
	}, firstCmd)

	register(types.Signature{
		Name:        "skip",
		Description: "Drop the first n elements.",
		Input:       types.Stream(types.Var("T")),
		Params:      []types.Param{{Name: "n", Type: types.Int}},
		Output:      types.Stream(types.Var("T")),
	}, skipCmd)

	register(types.Signature{
		Name:        "get",
		Description: "Project one field out of each record.",
		Input:       types.Stream(types.Dynamic),
		Params:      []types.Param{{Name: "field", Type: types.Str}},
		Output:      types.Stream(types.Dynamic),
		Refine: func(input types.Type, words []string) (types.Type, bool) {
			if input.Kind != types.KindStream || input.Elem.Kind != types.KindRecord {
				return types.Type{}, false
			}
			if len(words) == 0 || words[0] == "" {
				return types.Type{}, false
			}
			ft, ok := input.Elem.FieldType(words[0])
			if !ok {
				return types.Type{}, false
			}
			return types.Stream(ft), true
		},
	}, getCmd)

	register(types.Signature{
		Name:        "sort-by",
		Description: "Sort records by one field.",
		Input:       types.Stream(types.Var("T")),
		Params:      []types.Param{{Name: "field", Type: types.Str}},
		Output:      types.Stream(types.Var("T")),
	}, sortByCmd)

	register(types.Signature{
		Name:        "length",
		Description: "Count the elements of the input stream.",
		Input:       types.Stream(types.Var("T")),
		Output:      types.Int,
	}, lengthCmd)

	register(types.Signature{
		Name:        "sum",
		Description: "Add up the input numbers.",
		Input:       types.Stream(types.Float),
		Output:      types.Float,
	}, sumCmd)
}

func whereCmd(call *interp.Call) interp.Task {
	pred := call.Exprs[0]
	return func(ctx context.Context, io interp.StageIO) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-io.In:
				if !ok {
					return nil
				}
				fields := predicateFields(v)
				res, err := call.Eval(ctx, pred, fields)
				if err != nil {
					return fmt.Errorf("where: %w", err)
				}
				if res.Kind != object.KindBool {
					return fmt.Errorf("where: predicate produced %s, not Bool", res.TypeOf())
				}
				if !res.Bool {
					continue
				}
				if err := send(ctx, io.Out, v); err != nil {
					return err
				}
			}
		}
	}
}

// predicateFields exposes a record element's fields as variables; the
// whole element is always visible as $it.
func predicateFields(v object.Value) map[string]object.Value {
	fields := map[string]object.Value{"it": v}
	if v.Kind == object.KindRecord {
		for _, f := range v.Rec {
			fields[f.Name] = f.Val
		}
	}
	return fields
}

func firstCmd(call *interp.Call) interp.Task {
	n := call.Args[0].Int
	return func(ctx context.Context, io interp.StageIO) error {
		var sent int64
		for v := range io.In {
			if sent >= n {
				return nil
			}
			if err := send(ctx, io.Out, v); err != nil {
				return err
			}
			sent++
		}
		return nil
	}
}

func skipCmd(call *interp.Call) interp.Task {
	n := call.Args[0].Int
	return func(ctx context.Context, io interp.StageIO) error {
		var seen int64
		for v := range io.In {
			seen++
			if seen <= n {
				continue
			}
			if err := send(ctx, io.Out, v); err != nil {
				return err
			}
		}
		return nil
	}
}

func getCmd(call *interp.Call) interp.Task {
	field := call.Args[0].Str
	return func(ctx context.Context, io interp.StageIO) error {
		for v := range io.In {
			if v.Kind != object.KindRecord {
				return fmt.Errorf("get: input element is %s, not a record", v.TypeOf())
			}
			fv, ok := v.FieldValue(field)
			if !ok {
				return fmt.Errorf("get: record has no field %q", field)
			}
			if err := send(ctx, io.Out, fv); err != nil {
				return err
			}
		}
		return nil
	}
}

func sortByCmd(call *interp.Call) interp.Task {
	field := call.Args[0].Str
	return func(ctx context.Context, io interp.StageIO) error {
		vals, err := collect(ctx, io.In)
		if err != nil {
			return err
		}
		var sortErr error
		sort.SliceStable(vals, func(i, j int) bool {
			a, aok := vals[i].FieldValue(field)
			b, bok := vals[j].FieldValue(field)
			if !aok || !bok {
				if sortErr == nil {
					sortErr = fmt.Errorf("sort-by: record has no field %q", field)
				}
				return false
			}
			less, err := object.Less(a, b)
			if err != nil && sortErr == nil {
				sortErr = fmt.Errorf("sort-by: %w", err)
			}
			return less
		})
		if sortErr != nil {
			return sortErr
		}
		for _, v := range vals {
			if err := send(ctx, io.Out, v); err != nil {
				return err
			}
		}
		return nil
	}
}

func lengthCmd(call *interp.Call) interp.Task {
	return func(ctx context.Context, io interp.StageIO) error {
		var n int64
		for range io.In {
			n++
		}
		return send(ctx, io.Out, object.NewInt(n))
	}
}

func sumCmd(call *interp.Call) interp.Task {
	return func(ctx context.Context, io interp.StageIO) error {
		var total float64
		for v := range io.In {
			f, ok := v.AsFloat()
			if !ok {
				return fmt.Errorf("sum: input element is %s, not a number", v.TypeOf())
			}
			total += f
		}
		return send(ctx, io.Out, object.NewFloat(total))
	}
}
