package builtins

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilsh/anvil/core/check"
	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/session"
	"github.com/anvilsh/anvil/core/syntax"
	"github.com/anvilsh/anvil/core/types"
)

type world struct {
	engine *interp.Engine
	sess   *session.Session
	scope  *types.Scope
}

func newWorld(t *testing.T) *world {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/user", 0755))
	require.NoError(t, afero.WriteFile(fs, "/home/user/notes.txt", []byte("alpha\nbeta\ngamma\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/home/user/big.bin", []byte("0123456789"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/home/user/.hidden", []byte("x"), 0644))

	sess := session.New(fs, "/home/user")
	sess.Setenv("HOME", "/home/user")

	e := interp.NewEngine(types.NewRegistry())
	require.NoError(t, RegisterAll(e))
	return &world{engine: e, sess: sess, scope: types.NewScope()}
}

func (w *world) run(t *testing.T, src string) *interp.Outcome {
	t.Helper()
	prog, err := syntax.Parse(src)
	require.NoError(t, err)
	res := check.New(w.engine.Registry(), w.scope).Check(prog)
	require.True(t, res.Ok(), "type errors: %v", res.Errs)
	out, err := w.engine.Run(context.Background(), prog, res, w.sess)
	require.NoError(t, err)
	return out
}

func (w *world) check(t *testing.T, src string) *check.Result {
	t.Helper()
	prog, err := syntax.Parse(src)
	require.NoError(t, err)
	return check.New(w.engine.Registry(), w.scope).Check(prog)
}

func strs(vals []object.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func TestLsWhereGet(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "ls | where size > 3 | get name")
	require.Equal(t, interp.JobCompleted, out.Status)
	assert.Equal(t, []string{"big.bin", "notes.txt"}, strs(out.Values))
}

func TestLsHidesDotfiles(t *testing.T) {
	w := newWorld(t)

	out := w.run(t, "ls | get name")
	assert.NotContains(t, strs(out.Values), ".hidden")

	out = w.run(t, "ls -a | get name")
	assert.Contains(t, strs(out.Values), ".hidden")
}

func TestGetRefinesElementType(t *testing.T) {
	w := newWorld(t)
	res := w.check(t, "ls | get size")
	require.True(t, res.Ok())

	prog, _ := syntax.Parse("ls | get size")
	res = check.New(w.engine.Registry(), w.scope).Check(prog)
	require.True(t, res.Ok())
	r := res.Commands[prog.Stmts[0].(*syntax.Pipeline).Stages[1]]
	assert.Equal(t, "Stream<Int>", r.Out.String())
}

func TestSumWidensInts(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "ls | get size | sum")
	require.Len(t, out.Values, 1)
	// 10 bytes of big.bin plus 17 of notes.txt, dotfiles excluded.
	assert.Equal(t, object.KindFloat, out.Values[0].Kind)
	assert.Equal(t, 27.0, out.Values[0].Float)
}

func TestSortByFirstSkip(t *testing.T) {
	w := newWorld(t)

	out := w.run(t, "ls | sort-by size | first 1 | get name")
	assert.Equal(t, []string{"big.bin"}, strs(out.Values))

	out = w.run(t, "ls | sort-by size | skip 1 | get name")
	assert.Equal(t, []string{"notes.txt"}, strs(out.Values))
}

func TestOpenStreamsLines(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "open notes.txt | to-upper")
	assert.Equal(t, []string{"ALPHA", "BETA", "GAMMA"}, strs(out.Values))
}

func TestSaveThenOpen(t *testing.T) {
	w := newWorld(t)

	out := w.run(t, "echo one two | save out.txt")
	require.Equal(t, interp.JobCompleted, out.Status)

	out = w.run(t, "open out.txt")
	assert.Equal(t, []string{"one", "two"}, strs(out.Values))
}

func TestWherePredicateOnStrings(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "open notes.txt | where $it != \"beta\"")
	assert.Equal(t, []string{"alpha", "gamma"}, strs(out.Values))
}

func TestLength(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "open notes.txt | length")
	require.Len(t, out.Values, 1)
	assert.Equal(t, int64(3), out.Values[0].Int)
}

func TestCdPwd(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.sess.FS().MkdirAll("/home/user/sub", 0755))

	out := w.run(t, "cd sub")
	require.Equal(t, interp.JobCompleted, out.Status)
	assert.Equal(t, "/home/user/sub", w.sess.Cwd())

	out = w.run(t, "pwd")
	assert.Equal(t, []string{"/home/user/sub"}, strs(out.Values))

	w.run(t, "cd")
	assert.Equal(t, "/home/user", w.sess.Cwd())
}

func TestExportUnsetEnv(t *testing.T) {
	w := newWorld(t)

	w.run(t, "export GREETING hello")
	assert.Equal(t, "hello", w.sess.Getenv("GREETING"))

	out := w.run(t, "env | where name == \"GREETING\" | get value")
	assert.Equal(t, []string{"hello"}, strs(out.Values))

	w.run(t, "unset GREETING")
	_, found := w.sess.LookupEnv("GREETING")
	assert.False(t, found)
}

func TestJSONRoundTrip(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "ls | first 1 | to-json | from-json | get name")
	assert.Equal(t, []string{"big.bin"}, strs(out.Values))
}

func TestHelpListsBuiltins(t *testing.T) {
	w := newWorld(t)
	out := w.run(t, "help | get name")
	names := strs(out.Values)
	assert.Contains(t, names, "ls")
	assert.Contains(t, names, "where")
	assert.Contains(t, names, "star")
}

func TestStarExpression(t *testing.T) {
	w := newWorld(t)

	out := w.run(t, "star \"1 + 1\"")
	require.Equal(t, interp.JobCompleted, out.Status)
	require.Len(t, out.Values, 1)
	assert.Equal(t, int64(2), out.Values[0].Int)

	out = w.run(t, "ls | get size | star \"len(input)\"")
	require.Equal(t, interp.JobCompleted, out.Status)
	require.Len(t, out.Values, 1)
	assert.Equal(t, int64(2), out.Values[0].Int)

	out = w.run(t, "ls | get size | star \"max(input)\"")
	require.Equal(t, interp.JobCompleted, out.Status)
	require.Len(t, out.Values, 1)
	assert.Equal(t, int64(17), out.Values[0].Int)
}

func TestStarRuntimeMismatch(t *testing.T) {
	w := newWorld(t)
	// The checker cannot see inside the foreign program; shape
	// mismatches surface at run time.
	res := w.check(t, "pwd | star \"input + 1\"")
	require.True(t, res.Ok())

	prog, _ := syntax.Parse("pwd | star \"input + 1\"")
	res = check.New(w.engine.Registry(), w.scope).Check(prog)
	out, err := w.engine.Run(context.Background(), prog, res, w.sess)
	require.NoError(t, err)
	assert.Equal(t, interp.JobFailed, out.Status)
}

func TestUnknownFieldIsTypeError(t *testing.T) {
	w := newWorld(t)
	res := w.check(t, "ls | where sizes > 3")
	require.False(t, res.Ok())
	assert.Equal(t, check.CodeUndefinedVariable, res.Errs[0].Code)
}

func TestPipeMismatchIsTypeError(t *testing.T) {
	w := newWorld(t)
	res := w.check(t, "ls | to-upper")
	require.False(t, res.Ok())
	assert.Equal(t, check.CodePipeTypeMismatch, res.Errs[0].Code)
}
