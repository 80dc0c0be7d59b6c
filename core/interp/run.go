package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/anvilsh/anvil/core/check"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/session"
	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

// Run executes a fully-typed program statement by statement and
// returns the last statement's outcome. Programs that did not check
// clean are refused outright.
func (e *Engine) Run(ctx context.Context, prog *syntax.Program, res *check.Result, sess *session.Session) (*Outcome, error) {
	if !res.Ok() {
		return nil, fmt.Errorf("refusing to run: %d type errors", len(res.Errs))
	}
	last := &Outcome{Status: JobCompleted}
	for _, stmt := range prog.Stmts {
		out := e.runStmt(ctx, stmt, res, sess)
		last = out
		if out.Status == JobCancelled {
			break
		}
	}
	return last, nil
}

func (e *Engine) runStmt(ctx context.Context, stmt syntax.Stmt, res *check.Result, sess *session.Session) *Outcome {
	if ctx.Err() != nil {
		return &Outcome{Status: JobCancelled}
	}

	switch s := stmt.(type) {
	case *syntax.Pipeline:
		return e.runPipeline(ctx, s, res, sess)

	case *syntax.Assignment:
		v, err := evalExpr(ctx, s.Value, sess, nil)
		if err != nil {
			return failedOutcome(0, err)
		}
		sess.Assign(s.Name, v)
		return &Outcome{Status: JobCompleted}

	case *syntax.Block:
		sess.Push()
		defer sess.Pop()
		last := &Outcome{Status: JobCompleted}
		for _, inner := range s.Stmts {
			last = e.runStmt(ctx, inner, res, sess)
			if last.Status == JobCancelled {
				break
			}
		}
		return last

	case *syntax.If:
		cond, err := evalCondition(ctx, s.Cond, sess)
		if err != nil {
			return failedOutcome(0, err)
		}
		if cond {
			return e.runStmt(ctx, s.Then, res, sess)
		}
		if s.Else != nil {
			return e.runStmt(ctx, s.Else, res, sess)
		}
		return &Outcome{Status: JobCompleted}

	case *syntax.While:
		last := &Outcome{Status: JobCompleted}
		for {
			if ctx.Err() != nil {
				return &Outcome{Status: JobCancelled}
			}
			cond, err := evalCondition(ctx, s.Cond, sess)
			if err != nil {
				return failedOutcome(0, err)
			}
			if !cond {
				return last
			}
			last = e.runStmt(ctx, s.Body, res, sess)
			if last.Status == JobCancelled {
				return last
			}
		}

	case *syntax.For:
		iter, err := evalExpr(ctx, s.Iter, sess, nil)
		if err != nil {
			return failedOutcome(0, err)
		}
		if iter.Kind != object.KindList {
			return failedOutcome(0, fmt.Errorf("for needs a List, got %s", iter.TypeOf()))
		}
		last := &Outcome{Status: JobCompleted}
		sess.Push()
		defer sess.Pop()
		for _, elem := range iter.List {
			if ctx.Err() != nil {
				return &Outcome{Status: JobCancelled}
			}
			sess.Bind(s.Var, elem)
			last = e.runStmt(ctx, s.Body, res, sess)
			if last.Status == JobCancelled {
				return last
			}
		}
		return last
	}

	return failedOutcome(0, fmt.Errorf("unrunnable statement at %s", stmt.Pos()))
}

func evalCondition(ctx context.Context, expr syntax.Expr, sess *session.Session) (bool, error) {
	v, err := evalExpr(ctx, expr, sess, nil)
	if err != nil {
		return false, err
	}
	if v.Kind != object.KindBool {
		return false, fmt.Errorf("condition must be Bool, got %s", v.TypeOf())
	}
	return v.Bool, nil
}

func failedOutcome(stage int, err error) *Outcome {
	return &Outcome{
		Status:      JobFailed,
		FailedStage: stage,
		Cause:       err,
		StageErrs:   []error{err},
	}
}

// stagePlan is the fully-built runtime description of one stage,
// assembled before anything spawns.
type stagePlan struct {
	r    *check.Resolved
	task Task
	proc *external

	// in is the stage's value input, nil for heads and byte stages.
	in <-chan object.Value
	// out is the stage's value output. The engine closes it when the
	// stage's goroutine finishes.
	out chan object.Value
	// closeIn is the byte input pipe end to close once the stage
	// finishes, unblocking the upstream writer.
	closeIn io.Closer
}

// runPipeline builds, spawns and reaps one pipeline job.
func (e *Engine) runPipeline(ctx context.Context, p *syntax.Pipeline, res *check.Result, sess *session.Session) *Outcome {
	n := len(p.Stages)
	job := NewJob(n)
	// Run's precondition already established a clean check.
	if err := job.Transition(JobTypeChecked); err != nil {
		return failedOutcome(0, err)
	}

	snap := sess.Snapshot()
	plans := make([]*stagePlan, n)

	// Build phase: evaluate arguments, resolve files and build every
	// stage's plumbing. Any failure here aborts before side effects.
	var adapters []func() error
	var openFiles []io.Closer
	abort := func(stage int, err error) *Outcome {
		for _, f := range openFiles {
			f.Close()
		}
		return failedOutcome(stage, err)
	}

	var prevVal chan object.Value
	var prevByte io.ReadCloser

	for i, cmd := range p.Stages {
		r := res.Commands[cmd]
		pl := &stagePlan{r: r}
		plans[i] = pl
		last := i == n-1

		// Output redirects divert the pipeline's terminal stream; a
		// mid-pipe stage has a downstream consumer instead of a file.
		if !last {
			if rd := outRedirect(cmd); rd != nil {
				return abort(i, fmt.Errorf("output redirect to %s must be on the final stage", rd.Target))
			}
		}

		switch r.Kind {
		case check.StageExpr:
			v, err := evalExpr(ctx, cmd.Expr, sess, nil)
			if err != nil {
				return abort(i, err)
			}
			pl.task = emitValue(v)

		case check.StageBuiltin:
			if rd := findRedirect(cmd, syntax.RedirIn); rd != nil {
				return abort(i, fmt.Errorf("%s: input redirect needs an external command", r.Name))
			}
			call, err := e.buildCall(ctx, r, snap, sess)
			if err != nil {
				return abort(i, err)
			}
			f, ok := e.factories[r.Name]
			if !ok {
				return abort(i, fmt.Errorf("%s: builtin has no runner", r.Name))
			}
			pl.task = f(call)

		case check.StageExternal:
			args := make([]string, len(r.Args))
			for j, a := range r.Args {
				v, err := evalExpr(ctx, a, sess, nil)
				if err != nil {
					return abort(i, err)
				}
				args[j] = v.String()
			}
			pl.proc = &external{name: r.Name, args: args, snap: snap, stderr: e.Stderr}
		}

		// Wire the input side.
		if pl.proc != nil {
			switch {
			case prevByte != nil:
				pl.proc.stdin = prevByte
				pl.closeIn = prevByte
			case prevVal != nil:
				pr, pw := io.Pipe()
				in := prevVal
				adapters = append(adapters, func() error {
					return encodeValues(ctx, in, pw)
				})
				pl.proc.stdin = pr
				pl.closeIn = pr
			default:
				if rd := findRedirect(cmd, syntax.RedirIn); rd != nil {
					f, err := sess.FS().Open(sess.Abs(rd.Target))
					if err != nil {
						return abort(i, err)
					}
					openFiles = append(openFiles, f)
					pl.proc.stdin = f
				}
			}
		} else {
			switch {
			case prevVal != nil:
				pl.in = prevVal
			case prevByte != nil:
				ch := make(chan object.Value, stageChanSize)
				src, out := prevByte, ch
				adapters = append(adapters, func() error {
					defer close(out)
					return decodeValues(ctx, src, out)
				})
				pl.in = ch
				pl.closeIn = prevByte
			}
		}
		prevVal, prevByte = nil, nil

		// Wire the output side.
		if pl.proc != nil {
			switch {
			case !last:
				pr, pw := io.Pipe()
				pl.proc.stdout = pw
				pl.proc.closeStdout = pw
				prevByte = pr
			default:
				w, err := e.outputTarget(cmd, sess, &openFiles)
				if err != nil {
					return abort(i, err)
				}
				pl.proc.stdout = w
			}
		} else {
			pl.out = make(chan object.Value, stageChanSize)
			if !last {
				prevVal = pl.out
			} else if rd := outRedirect(cmd); rd != nil {
				w, err := e.outputTarget(cmd, sess, &openFiles)
				if err != nil {
					return abort(i, err)
				}
				in := pl.out
				adapters = append(adapters, func() error {
					return encodeValues(ctx, in, nopWriteCloser{w})
				})
			}
		}
	}

	// Spawn phase.
	if err := job.Transition(JobSpawned); err != nil {
		return abort(0, err)
	}
	var wg sync.WaitGroup
	for i, pl := range plans {
		wg.Add(1)
		go func(i int, pl *stagePlan) {
			defer wg.Done()
			defer func() {
				if pl.out != nil {
					close(pl.out)
				}
				if pl.closeIn != nil {
					pl.closeIn.Close()
				}
				if pl.in != nil {
					for range pl.in {
					}
				}
			}()
			var err error
			if pl.proc != nil {
				err = pl.proc.run(ctx, sess.FS())
			} else {
				err = pl.task(ctx, StageIO{In: pl.in, Out: pl.out, Stderr: e.Stderr})
			}
			if err != nil && err != context.Canceled {
				job.StageErrs[i] = &RuntimeError{Stage: i, Cause: err}
			}
		}(i, pl)
	}

	// Adapters run as peers of the stages they connect.
	var awg sync.WaitGroup
	for _, a := range adapters {
		awg.Add(1)
		go func(run func() error) {
			defer awg.Done()
			run()
		}(a)
	}

	// Collect the final stage's values unless a redirect or an
	// external stage already claimed its output.
	var values []object.Value
	lastPlan := plans[n-1]
	collect := lastPlan.out != nil && outRedirect(p.Stages[n-1]) == nil
	done := make(chan struct{})
	if collect {
		go func() {
			defer close(done)
			for v := range lastPlan.out {
				values = append(values, v)
			}
		}()
	} else {
		close(done)
	}

	job.Transition(JobRunning)
	wg.Wait()
	awg.Wait()
	<-done
	for _, f := range openFiles {
		f.Close()
	}

	return e.reap(ctx, job, values)
}

// reap computes the job's terminal state from per-stage results.
func (e *Engine) reap(ctx context.Context, job *Job, values []object.Value) *Outcome {
	out := &Outcome{Values: values, StageErrs: job.StageErrs, FailedStage: -1}

	if ctx.Err() != nil {
		job.Transition(JobCancelled)
		out.Status = JobCancelled
		return out
	}

	first, firstErr := job.FirstFailed()
	lastIdx := len(job.StageErrs) - 1
	switch {
	case first < 0:
		job.Transition(JobCompleted)
		out.Status = JobCompleted
	case e.Pipefail:
		job.Transition(JobFailed)
		out.Status = JobFailed
		out.FailedStage, out.Cause = first, firstErr
	case job.StageErrs[lastIdx] != nil:
		job.Transition(JobFailed)
		out.Status = JobFailed
		out.FailedStage, out.Cause = lastIdx, job.StageErrs[lastIdx]
	default:
		job.Transition(JobCompleted)
		out.Status = JobCompleted
	}
	return out
}

// buildCall evaluates a builtin's arguments ahead of the spawn.
// Predicate parameters stay unevaluated; their expressions run once
// per element inside the task.
func (e *Engine) buildCall(ctx context.Context, r *check.Resolved, snap session.Snapshot, sess *session.Session) (*Call, error) {
	call := &Call{
		Name:       r.Name,
		Sig:        r.Sig,
		Exprs:      r.Args,
		In:         r.In,
		PredFields: r.PredFields,
		Snap:       snap,
		FS:         sess.FS(),
		Session:    sess,
		Registry:   e.reg,
		Eval: func(ctx context.Context, expr syntax.Expr, fields map[string]object.Value) (object.Value, error) {
			return evalExpr(ctx, expr, sess, fields)
		},
	}
	call.Args = make([]object.Value, len(r.Args))
	for i, a := range r.Args {
		if p := paramAt(r.Sig, i); p != nil && p.Predicate {
			call.Args[i] = object.UnitVal
			continue
		}
		v, err := evalExpr(ctx, a, sess, nil)
		if err != nil {
			return nil, err
		}
		call.Args[i] = v
	}
	return call, nil
}

// emitValue is the task of a bare expression stage.
func emitValue(v object.Value) Task {
	return func(ctx context.Context, io StageIO) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case io.Out <- v:
			return nil
		}
	}
}

func findRedirect(cmd *syntax.Command, kind syntax.RedirKind) *syntax.Redirect {
	for i := range cmd.Redirects {
		if cmd.Redirects[i].Kind == kind {
			return &cmd.Redirects[i]
		}
	}
	return nil
}

func outRedirect(cmd *syntax.Command) *syntax.Redirect {
	if rd := findRedirect(cmd, syntax.RedirOut); rd != nil {
		return rd
	}
	return findRedirect(cmd, syntax.RedirAppend)
}

// outputTarget resolves a final stage's byte sink: a redirect file or
// the engine's stdout.
func (e *Engine) outputTarget(cmd *syntax.Command, sess *session.Session, openFiles *[]io.Closer) (io.Writer, error) {
	rd := outRedirect(cmd)
	if rd == nil {
		return e.Stdout, nil
	}
	fs := sess.FS()
	path := sess.Abs(rd.Target)
	var (
		f   afero.File
		err error
	)
	if rd.Kind == syntax.RedirAppend {
		f, err = fs.OpenFile(path, appendFlags, 0644)
	} else {
		f, err = fs.Create(path)
	}
	if err != nil {
		return nil, err
	}
	*openFiles = append(*openFiles, f)
	return f, nil
}

// paramAt maps an argument index to its signature parameter, with the
// last parameter absorbing variadic overflow.
func paramAt(sig *types.Signature, i int) *types.Param {
	if sig == nil || len(sig.Params) == 0 {
		return nil
	}
	if i >= len(sig.Params) {
		last := &sig.Params[len(sig.Params)-1]
		if last.Variadic {
			return last
		}
		return nil
	}
	return &sig.Params[i]
}

const appendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
