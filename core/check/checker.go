// Package check implements the type checker: it walks the AST,
// assigns a type to every node, verifies pipe compatibility between
// adjacent pipeline stages, and resolves each command to a builtin
// signature or an external fallback. It collects every error before
// returning so the caller can report all problems in one pass, and no
// stage runs unless the whole statement checked clean.
package check

import (
	"fmt"

	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

// StageKind discriminates how a resolved command executes.
type StageKind int

const (
	// StageBuiltin runs as an in-process task with a registered
	// signature.
	StageBuiltin StageKind = iota
	// StageExternal spawns an OS process, typed Bytes -> Bytes.
	StageExternal
	// StageExpr evaluates an expression and emits its single value.
	StageExpr
)

// Resolved carries everything the execution engine needs about one
// pipeline stage, derived once here so the engine never re-derives
// command kinds.
type Resolved struct {
	Kind StageKind
	Name string
	Sig  *types.Signature

	// Args is the argument list after alias expansion.
	Args []syntax.Expr

	// In and Out are the concrete connection types after unification.
	In  types.Type
	Out types.Type

	// InBoundary marks the upstream connection as a Bytes/Stream
	// boundary needing a serialize/deserialize adapter.
	InBoundary bool

	// PredFields holds the record fields a predicate argument's
	// variables resolve against at runtime.
	PredFields []types.Field
}

// Result is a fully-typed program: a side table of node types plus the
// per-command resolution, never a mutation of the AST itself.
type Result struct {
	Types    map[syntax.Node]types.Type
	Commands map[*syntax.Command]*Resolved
	Errs     []*TypeError
}

// Ok reports whether the program may be executed.
func (r *Result) Ok() bool { return len(r.Errs) == 0 }

// Checker type-checks programs against a builtin registry and a
// variable scope. The same checker instance is reused across REPL
// statements so top-level bindings persist.
type Checker struct {
	reg   *types.Registry
	scope *types.Scope
}

// New returns a checker over the given registry and scope.
func New(reg *types.Registry, scope *types.Scope) *Checker {
	return &Checker{reg: reg, scope: scope}
}

// Check walks the program and returns its typing. Checking is
// idempotent: running it twice over the same AST yields identical
// annotations.
func (c *Checker) Check(prog *syntax.Program) *Result {
	res := &Result{
		Types:    make(map[syntax.Node]types.Type),
		Commands: make(map[*syntax.Command]*Resolved),
	}
	for _, stmt := range prog.Stmts {
		c.checkStmt(stmt, res)
	}
	return res
}

func (c *Checker) errf(res *Result, e *TypeError) {
	res.Errs = append(res.Errs, e)
}

func (c *Checker) checkStmt(stmt syntax.Stmt, res *Result) {
	switch s := stmt.(type) {
	case *syntax.Pipeline:
		c.checkPipeline(s, res)

	case *syntax.Assignment:
		t := c.checkExpr(s.Value, res)
		c.scope.Assign(s.Name, t)
		res.Types[s] = types.Unit

	case *syntax.Block:
		c.scope.Push()
		for _, inner := range s.Stmts {
			c.checkStmt(inner, res)
		}
		c.scope.Pop()
		res.Types[s] = types.Unit

	case *syntax.If:
		c.checkCondition(s.Cond, res)
		c.checkStmt(s.Then, res)
		if s.Else != nil {
			c.checkStmt(s.Else, res)
		}
		res.Types[s] = types.Unit

	case *syntax.While:
		c.checkCondition(s.Cond, res)
		c.checkStmt(s.Body, res)
		res.Types[s] = types.Unit

	case *syntax.For:
		iter := c.checkExpr(s.Iter, res)
		elem := types.Dynamic
		switch iter.Kind {
		case types.KindList, types.KindStream:
			elem = *iter.Elem
		case types.KindDynamic:
		default:
			c.errf(res, &TypeError{
				Code:     CodeArgumentTypeMismatch,
				Pos:      s.Iter.Pos(),
				Expected: types.List(types.Dynamic),
				Found:    iter,
				Context:  "for iterable",
			})
		}
		c.scope.Push()
		c.scope.Bind(s.Var, elem)
		c.checkStmt(s.Body, res)
		c.scope.Pop()
		res.Types[s] = types.Unit
	}
}

func (c *Checker) checkCondition(cond syntax.Expr, res *Result) {
	t := c.checkExpr(cond, res)
	if t.Kind != types.KindBool && t.Kind != types.KindDynamic {
		c.errf(res, &TypeError{
			Code:     CodeArgumentTypeMismatch,
			Pos:      cond.Pos(),
			Expected: types.Bool,
			Found:    t,
			Context:  "condition",
		})
	}
}

// pipeCompatible applies the central pipe rule between one stage's
// output and the next stage's declared input. boundary reports the
// legal Bytes/Stream crossing that implies a serialize/deserialize
// adapter rather than an error.
func pipeCompatible(produced, expected types.Type, b types.Bindings) (ok, boundary bool) {
	if produced.Kind == types.KindDynamic || expected.Kind == types.KindDynamic {
		return true, false
	}
	if produced.Kind == types.KindStream && expected.Kind == types.KindBytes {
		return true, true
	}
	if produced.Kind == types.KindBytes && expected.Kind == types.KindStream {
		return true, true
	}
	// Pipeline heads produce Unit; an external's Bytes input accepts
	// it as an empty stdin.
	if produced.Kind == types.KindUnit && expected.Kind == types.KindBytes {
		return true, false
	}
	if types.Unify(expected, produced, b) {
		return true, false
	}
	return false, false
}

func (c *Checker) checkPipeline(p *syntax.Pipeline, res *Result) {
	prev := types.Unit

	for i, cmd := range p.Stages {
		r := c.checkStage(cmd, i, prev, res)
		res.Commands[cmd] = r
		res.Types[cmd] = r.Out
		prev = r.Out
	}
	res.Types[p] = prev
}

func (c *Checker) checkStage(cmd *syntax.Command, index int, prev types.Type, res *Result) *Resolved {
	if cmd.IsExpr() {
		out := c.checkExpr(cmd.Expr, res)
		r := &Resolved{Kind: StageExpr, In: types.Unit, Out: out}
		c.checkPipe(cmd, index, prev, types.Unit, types.Bindings{}, res)
		return r
	}

	name := cmd.Name
	args := cmd.Args

	// Aliases resolve here: the alias text was pre-split at startup;
	// its first word is the real command, the rest become leading
	// string arguments. Aliases do not chain.
	if words, ok := c.reg.LookupAlias(name); ok && len(words) > 0 {
		name = words[0]
		var prefix []syntax.Expr
		for _, w := range words[1:] {
			prefix = append(prefix, &syntax.Literal{Kind: syntax.LitStr, Str: w, Word: true, P: cmd.NamePos})
		}
		args = append(prefix, args...)
	}

	sig, isBuiltin := c.reg.LookupBuiltin(name)
	if !isBuiltin {
		// Any bare word with no builtin and no alias denotes an
		// external process: the universal Bytes -> Bytes escape.
		r := &Resolved{Kind: StageExternal, Name: name, Args: args, In: types.Bytes, Out: types.Bytes}
		ok, boundary := c.checkPipe(cmd, index, prev, types.Bytes, types.Bindings{}, res)
		r.InBoundary = ok && boundary
		// External args must be strings (they become argv words).
		for argIdx, a := range args {
			t := c.checkExpr(a, res)
			if !t.WidensTo(types.Str) && t.Kind != types.KindDynamic &&
				t.Kind != types.KindInt && t.Kind != types.KindFloat && t.Kind != types.KindBool {
				c.errf(res, &TypeError{
					Code:     CodeArgumentTypeMismatch,
					Pos:      a.Pos(),
					Expected: types.Str,
					Found:    t,
					Context:  fmt.Sprintf("argument %d of %q", argIdx+1, name),
				})
			}
		}
		return r
	}

	bindings := types.Bindings{}
	ok, boundary := c.checkPipe(cmd, index, prev, sig.Input, bindings, res)

	r := &Resolved{
		Kind:       StageBuiltin,
		Name:       name,
		Sig:        sig,
		Args:       args,
		InBoundary: ok && boundary,
	}

	// The concrete element type flowing in, used for predicate field
	// scopes and output refinement.
	input := prev
	if !ok || boundary {
		input = types.Substitute(sig.Input, bindings)
	}
	r.In = input

	c.checkArgs(sig, args, input, bindings, res, r)

	out := types.Substitute(sig.Output, bindings)
	if sig.Refine != nil {
		words := literalWords(args)
		if refined, did := sig.Refine(input, words); did {
			out = refined
		}
	}
	r.Out = out
	return r
}

// checkPipe verifies one connection and records an error when the
// types cannot meet.
func (c *Checker) checkPipe(cmd *syntax.Command, index int, produced, expected types.Type, b types.Bindings, res *Result) (ok, boundary bool) {
	ok, boundary = pipeCompatible(produced, expected, b)
	if !ok {
		c.errf(res, &TypeError{
			Code:     CodePipeTypeMismatch,
			Pos:      cmd.Pos(),
			Stage:    index,
			Expected: expected,
			Found:    produced,
		})
	}
	return ok, boundary
}

func (c *Checker) checkArgs(sig *types.Signature, args []syntax.Expr, input types.Type, b types.Bindings, res *Result, r *Resolved) {
	params := sig.Params
	argIdx := 0

	for _, param := range params {
		if param.Variadic {
			for ; argIdx < len(args); argIdx++ {
				c.checkOneArg(sig, param, args[argIdx], argIdx, input, b, res, r)
			}
			return
		}
		if argIdx >= len(args) {
			c.errf(res, &TypeError{
				Code:     CodeArgumentTypeMismatch,
				Pos:      position(args, sig),
				Expected: param.Type,
				Found:    types.Unit,
				Context:  fmt.Sprintf("missing argument %q of %q", param.Name, sig.Name),
			})
			continue
		}
		c.checkOneArg(sig, param, args[argIdx], argIdx, input, b, res, r)
		argIdx++
	}

	for ; argIdx < len(args); argIdx++ {
		t := c.checkExpr(args[argIdx], res)
		c.errf(res, &TypeError{
			Code:     CodeArgumentTypeMismatch,
			Pos:      args[argIdx].Pos(),
			Expected: types.Unit,
			Found:    t,
			Context:  fmt.Sprintf("unexpected argument %d of %q", argIdx+1, sig.Name),
		})
	}
}

func position(args []syntax.Expr, sig *types.Signature) syntax.Position {
	if len(args) > 0 {
		return args[len(args)-1].Pos()
	}
	return syntax.Position{Line: 1, Column: 1}
}

func (c *Checker) checkOneArg(sig *types.Signature, param types.Param, arg syntax.Expr, argIdx int, input types.Type, b types.Bindings, res *Result, r *Resolved) {
	if param.Predicate {
		// Predicate arguments check inside a fresh scope where the
		// input stream's record fields are visible; the engine
		// re-evaluates them per element against those same fields.
		c.scope.Push()
		if input.Kind == types.KindStream {
			c.scope.Bind("it", *input.Elem)
			if input.Elem.Kind == types.KindRecord {
				for _, f := range input.Elem.Fields {
					c.scope.Bind(f.Name, f.Type)
				}
				r.PredFields = input.Elem.Fields
			}
		}
		t := c.checkExpr(arg, res)
		c.scope.Pop()

		want := types.Substitute(param.Type, b)
		if !t.WidensTo(want) && t.Kind != types.KindDynamic {
			c.errf(res, &TypeError{
				Code:     CodeArgumentTypeMismatch,
				Pos:      arg.Pos(),
				Expected: want,
				Found:    t,
				Context:  fmt.Sprintf("predicate of %q", sig.Name),
			})
		}
		return
	}

	t := c.checkExpr(arg, res)
	if !types.Unify(param.Type, t, b) && t.Kind != types.KindDynamic {
		c.errf(res, &TypeError{
			Code:     CodeArgumentTypeMismatch,
			Pos:      arg.Pos(),
			Expected: types.Substitute(param.Type, b),
			Found:    t,
			Context:  fmt.Sprintf("argument %d of %q", argIdx+1, sig.Name),
		})
	}
}

// literalWords extracts the bare-word text of each argument, "" for
// anything else, for signature refinement hooks.
func literalWords(args []syntax.Expr) []string {
	words := make([]string, len(args))
	for i, a := range args {
		if lit, ok := a.(*syntax.Literal); ok && lit.Kind == syntax.LitStr {
			words[i] = lit.Str
		}
	}
	return words
}
