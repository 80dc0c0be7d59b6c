// Package core wires the shell together: readline front end, parser,
// checker, execution engine, configuration and the statement log.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abiosoft/readline"
	shlex "github.com/anmitsu/go-shlex"
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/anvilsh/anvil/core/builtins"
	"github.com/anvilsh/anvil/core/check"
	"github.com/anvilsh/anvil/core/config"
	"github.com/anvilsh/anvil/core/eventlog"
	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/session"
	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvPath     = "PATH"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"

	DefaultPrompt = `\u@\h:\w\$ `
	DefaultPath   = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
)

var (
	errColor    = color.New(color.FgRed, color.Bold)
	posColor    = color.New(color.FgCyan)
	headerColor = color.New(color.Bold)
)

// Shell is one interactive or scripted anvil instance.
type Shell struct {
	Engine  *interp.Engine
	Checker *check.Checker
	Session *session.Session
	Config  *config.Configuration

	Events *eventlog.Log

	scope *types.Scope

	stdout io.Writer
	stderr io.Writer
}

// NewShell builds a shell over the filesystem with the configuration
// applied: builtins registered, disabled names removed, aliases
// installed and startup variables bound.
func NewShell(cfg *config.Configuration, fs afero.Fs) (*Shell, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	sess := session.New(fs, cwd)
	if cfg.InheritEnv {
		sess.InheritEnviron()
	}
	seedEnv(sess)

	engine := interp.NewEngine(types.NewRegistry())
	engine.Pipefail = cfg.Pipefail
	if err := builtins.RegisterAll(engine); err != nil {
		return nil, err
	}
	for _, name := range cfg.DisabledBuiltins {
		engine.Unregister(name)
	}
	for name, line := range cfg.Aliases {
		words, err := shlex.Split(line, true)
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", name, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("alias %q: empty expansion", name)
		}
		engine.Registry().SetAlias(name, words)
	}

	scope := types.NewScope()
	for name, raw := range cfg.Vars {
		v := parseLiteral(raw)
		sess.Bind(name, v)
		scope.Bind(name, v.TypeOf())
	}

	return &Shell{
		Engine:  engine,
		Checker: check.New(engine.Registry(), scope),
		Session: sess,
		Config:  cfg,
		scope:   scope,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}, nil
}

// seedEnv fills in the variables the prompt and external commands
// depend on when the parent environment did not provide them.
func seedEnv(sess *session.Session) {
	if sess.Getenv(EnvPath) == "" {
		sess.Setenv(EnvPath, DefaultPath)
	}
	if sess.Getenv(EnvHome) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			sess.Setenv(EnvHome, home)
		}
	}
	if sess.Getenv(EnvUser) == "" {
		sess.Setenv(EnvUser, "anvil")
	}
	if sess.Getenv(EnvHostname) == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "localhost"
		}
		sess.Setenv(EnvHostname, host)
	}
	sess.Setenv(EnvPWD, sess.Cwd())
}

// parseLiteral reads a startup variable value the way the lexer reads
// a source literal.
func parseLiteral(raw string) object.Value {
	switch raw {
	case "true":
		return object.NewBool(true)
	case "false":
		return object.NewBool(false)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return object.NewInt(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return object.NewFloat(f)
	}
	return object.NewStr(raw)
}

// Prompt renders the configured prompt template against the session.
func (s *Shell) Prompt() string {
	prompt := s.Config.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	prompt = strings.ReplaceAll(prompt, `\u`, s.Session.Getenv(EnvUser))
	prompt = strings.ReplaceAll(prompt, `\h`, s.Session.Getenv(EnvHostname))

	pwd := s.Session.Cwd()
	if home := s.Session.Getenv(EnvHome); home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)
	prompt = strings.ReplaceAll(prompt, `\$`, "$")

	return prompt
}

// completer offers registered builtin names for the leading word.
func (s *Shell) completer() readline.AutoCompleter {
	names := s.Engine.Registry().Names()
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		items[i] = readline.PcItem(name)
	}
	return readline.NewPrefixCompleter(items...)
}

// Run is the interactive loop. It returns when input closes or the
// user runs exit.
func (s *Shell) Run(ctx context.Context) error {
	cfg := &readline.Config{
		Stdin:        readline.NewCancelableStdin(os.Stdin),
		Stdout:       s.stdout,
		Stderr:       s.stderr,
		AutoComplete: s.completer(),
	}
	if err := cfg.Init(); err != nil {
		return err
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	defer rl.Close()

	s.SetOutput(rl.Stdout(), rl.Stderr())

	var pending string
	for {
		if pending == "" {
			rl.SetPrompt(s.Prompt())
		} else {
			rl.SetPrompt("... ")
		}
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return nil

		case err == readline.ErrInterrupt:
			pending = ""
			continue

		case err != nil:
			return err
		}

		src := line
		if pending != "" {
			src = pending + "\n" + line
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		if syntax.Incomplete(src) {
			pending = src
			continue
		}
		pending = ""

		if strings.TrimSpace(src) == "exit" {
			return nil
		}

		// Interrupting a running statement cancels its job, not the
		// shell.
		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		s.EvalLine(runCtx, src)
		stop()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// EvalLine parses, checks and runs one source line, rendering its
// diagnostics or results.
func (s *Shell) EvalLine(ctx context.Context, src string) *interp.Outcome {
	start := time.Now()

	prog, err := syntax.Parse(src)
	if err != nil {
		s.reportParseError(src, err)
		s.logStatement(src, "parse-error", start, nil)
		return nil
	}

	res := s.Checker.Check(prog)
	if !res.Ok() {
		for _, te := range res.Errs {
			s.reportTypeError(src, te)
		}
		s.logStatement(src, "type-error", start, nil)
		return nil
	}

	out, err := s.Engine.Run(ctx, prog, res, s.Session)
	if err != nil {
		errColor.Fprintf(s.stderr, "error: ")
		fmt.Fprintln(s.stderr, err)
		s.logStatement(src, "failed", start, nil)
		return nil
	}

	s.renderOutcome(out)
	s.logStatement(src, out.Status.String(), start, out)
	return out
}

// RunSource evaluates a whole script non-interactively.
func (s *Shell) RunSource(ctx context.Context, src string) error {
	prog, err := syntax.Parse(src)
	if err != nil {
		s.reportParseError(src, err)
		return err
	}
	res := s.Checker.Check(prog)
	if !res.Ok() {
		for _, te := range res.Errs {
			s.reportTypeError(src, te)
		}
		return fmt.Errorf("%d type errors", len(res.Errs))
	}

	out, err := s.Engine.Run(ctx, prog, res, s.Session)
	if err != nil {
		return err
	}
	s.renderOutcome(out)
	return out.Err()
}

// CheckSource type-checks a script without running it, reporting the
// diagnostics and returning them.
func (s *Shell) CheckSource(src string) ([]*check.TypeError, error) {
	prog, err := syntax.Parse(src)
	if err != nil {
		s.reportParseError(src, err)
		return nil, err
	}
	res := s.Checker.Check(prog)
	for _, te := range res.Errs {
		s.reportTypeError(src, te)
	}
	return res.Errs, nil
}

func (s *Shell) reportParseError(src string, err error) {
	errColor.Fprint(s.stderr, "parse error: ")
	if pe, ok := err.(*syntax.ParseError); ok {
		fmt.Fprintf(s.stderr, "expected %s, found %s\n", pe.Expected, pe.Found)
		s.underline(src, pe.Pos, pe.End)
		return
	}
	fmt.Fprintln(s.stderr, err)
}

func (s *Shell) reportTypeError(src string, te *check.TypeError) {
	errColor.Fprint(s.stderr, "type error: ")
	fmt.Fprintln(s.stderr, te.Error())
	s.underline(src, te.Pos, 0)
}

// underline prints the offending source line with a caret marker.
func (s *Shell) underline(src string, pos syntax.Position, end int) {
	lines := strings.Split(src, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return
	}
	line := lines[pos.Line-1]
	posColor.Fprintf(s.stderr, "%4d | ", pos.Line)
	fmt.Fprintln(s.stderr, line)

	width := 1
	if end > pos.Offset {
		width = end - pos.Offset
	}
	if pos.Column-1+width > len(line) {
		width = len(line) - pos.Column + 1
	}
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(s.stderr, "     | %s%s\n", strings.Repeat(" ", pos.Column-1), strings.Repeat("^", width))
}

func (s *Shell) renderOutcome(out *interp.Outcome) {
	if out.Status == interp.JobFailed {
		errColor.Fprint(s.stderr, "job failed: ")
		fmt.Fprintln(s.stderr, out.Cause)
	}
	if out.Status == interp.JobCancelled {
		fmt.Fprintln(s.stderr, "cancelled")
	}
	RenderValues(s.stdout, out.Values)
}

// RenderValues pretty-prints a statement's collected output: records
// as an aligned table, everything else one value per line.
func RenderValues(w io.Writer, values []object.Value) {
	if len(values) == 0 {
		return
	}

	allRecords := true
	for _, v := range values {
		if v.Kind != object.KindRecord {
			allRecords = false
			break
		}
	}
	if !allRecords {
		for _, v := range values {
			fmt.Fprintln(w, v)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 2, 8, 2, ' ', 0)
	defer tw.Flush()

	var cols []string
	seen := map[string]bool{}
	for _, v := range values {
		for _, f := range v.Rec {
			if !seen[f.Name] {
				seen[f.Name] = true
				cols = append(cols, f.Name)
			}
		}
	}
	headerColor.Fprintln(tw, strings.Join(cols, "\t"))
	for _, v := range values {
		cells := make([]string, len(cols))
		for i, name := range cols {
			if fv, ok := v.FieldValue(name); ok {
				cells[i] = fv.String()
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
}

func (s *Shell) logStatement(src, status string, start time.Time, out *interp.Outcome) {
	entry := eventlog.Entry{
		Time:       time.Now().UTC(),
		Source:     src,
		Status:     status,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if out != nil && out.Status == interp.JobFailed {
		entry.FailedStage = out.FailedStage
		for _, e := range out.StageErrs {
			if e != nil {
				entry.Errors = append(entry.Errors, e.Error())
			}
		}
	}
	s.Events.Record(entry)
}

// OpenEventLog attaches the statement log configured relative to dir.
func (s *Shell) OpenEventLog(fs afero.Fs, dir string) error {
	if s.Config.EventLog == "" {
		return nil
	}
	path := s.Config.EventLog
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	log, err := eventlog.Open(fs, path)
	if err != nil {
		return err
	}
	s.Events = log
	return nil
}

// Close releases the shell's resources.
func (s *Shell) Close() error {
	return s.Events.Close()
}

// SetOutput redirects the shell's rendering, used by tests and the
// non-interactive runners.
func (s *Shell) SetOutput(stdout, stderr io.Writer) {
	s.stdout = stdout
	s.stderr = stderr
	s.Engine.Stdout = stdout
	s.Engine.Stderr = stderr
}
