// Package interp is the execution engine: it turns a fully
// type-checked program into jobs whose stages run concurrently,
// connected by typed channels, byte-boundary adapters and OS pipes,
// then aggregates their exit status. Nothing here spawns unless the
// checker passed the whole statement first.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/session"
	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

// stageChanSize bounds inter-stage channels, providing backpressure
// from slow consumers to fast producers.
const stageChanSize = 64

// StageIO is the data plumbing handed to a builtin task.
type StageIO struct {
	// In delivers upstream values; nil for pipeline heads. It is
	// closed by the engine when the upstream stage finishes.
	In <-chan object.Value
	// Out receives the task's output values. The engine closes it
	// after the task returns; tasks only send.
	Out chan<- object.Value
	// Stderr is for diagnostics only.
	Stderr io.Writer
}

// Task is one running builtin stage. It must honor ctx cancellation at
// its channel operations.
type Task func(ctx context.Context, io StageIO) error

// Call carries one builtin invocation's evaluated arguments and
// spawn-time environment to its task factory.
type Call struct {
	Name string
	Sig  *types.Signature

	// Args holds evaluated argument values. Predicate parameters are
	// not pre-evaluated; their slots hold Unit and their expressions
	// are in Exprs.
	Args  []object.Value
	Exprs []syntax.Expr

	// In is the concrete input type flowing into the stage.
	In types.Type

	// PredFields are the record fields predicate variables resolve
	// against, one frame per element at runtime.
	PredFields []types.Field

	// Snap is the job's spawn-time environment capture.
	Snap session.Snapshot

	// FS is the filesystem builtins operate on.
	FS afero.Fs

	// Session is the live session. Only session-mutating builtins
	// (cd, export, unset) touch it; they run as sole stages so the
	// single-active-statement rule holds.
	Session *session.Session

	// Registry is the engine's builtin registry, read-only.
	Registry *types.Registry

	// Eval evaluates an expression with an extra innermost frame of
	// bindings, used by predicate parameters.
	Eval func(ctx context.Context, expr syntax.Expr, fields map[string]object.Value) (object.Value, error)
}

// Factory builds the task for one invocation of a builtin.
type Factory func(call *Call) Task

// Engine schedules type-checked programs. Builtins register once at
// startup; the maps are read-only afterwards.
type Engine struct {
	reg       *types.Registry
	factories map[string]Factory

	// Pipefail selects the exit-status policy for pipelines whose
	// non-final stage fails: when set, the first failing stage decides
	// the job status; otherwise the final stage does. Either way
	// per-stage failures are recorded.
	Pipefail bool

	// Stdout receives the byte output of a final external stage.
	Stdout io.Writer
	// Stderr receives stage diagnostics and external stderr.
	Stderr io.Writer
}

// NewEngine returns an engine over the registry.
func NewEngine(reg *types.Registry) *Engine {
	return &Engine{
		reg:       reg,
		factories: make(map[string]Factory),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Registry exposes the builtin registry for the checker and REPL.
func (e *Engine) Registry() *types.Registry { return e.reg }

// Register declares a builtin: its signature for the checker and its
// task factory for execution, in one step.
func (e *Engine) Register(sig types.Signature, f Factory) error {
	if err := e.reg.Register(sig); err != nil {
		return err
	}
	e.factories[sig.Name] = f
	return nil
}

// Unregister removes a config-disabled builtin before the first
// statement runs.
func (e *Engine) Unregister(name string) {
	e.reg.Unregister(name)
	delete(e.factories, name)
}

// RuntimeError is a post-spawn failure: spawn errors, nonzero exits,
// broken boundary adapters, foreign evaluator mismatches.
type RuntimeError struct {
	Stage int
	Cause error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("stage %d: %v", e.Stage, e.Cause)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// Outcome reports one executed statement.
type Outcome struct {
	Status JobState

	// Values holds the final stage's collected output for the caller
	// to render; empty when the final stage was external (its bytes
	// went to Stdout).
	Values []object.Value

	// FailedStage and Cause describe the stage that decided a Failed
	// status.
	FailedStage int
	Cause       error

	// StageErrs holds every stage's failure cause, nil for successes.
	StageErrs []error
}

// Err returns the deciding cause for a failed or cancelled outcome.
func (o *Outcome) Err() error {
	switch o.Status {
	case JobFailed:
		return o.Cause
	case JobCancelled:
		return context.Canceled
	}
	return nil
}
