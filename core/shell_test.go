package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilsh/anvil/core/config"
	"github.com/anvilsh/anvil/core/object"
)

func init() {
	color.NoColor = true
}

type shellFixture struct {
	*Shell
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestShell(t *testing.T) *shellFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/user", 0755))
	require.NoError(t, afero.WriteFile(fs, "/home/user/notes.txt", []byte("alpha\nbeta\n"), 0644))

	cfg := config.Default()
	cfg.InheritEnv = false
	cfg.EventLog = ""
	cfg.Vars = map[string]string{"answer": "42"}

	sh, err := NewShell(cfg, fs)
	require.NoError(t, err)
	sh.Session.Setenv(EnvHome, "/home/user")
	sh.Session.Setenv(EnvUser, "user")
	sh.Session.Setenv(EnvHostname, "forge")
	require.NoError(t, sh.Session.Chdir("/home/user"))

	fx := &shellFixture{Shell: sh, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	sh.SetOutput(fx.stdout, fx.stderr)
	return fx
}

func TestRenderValuesTable(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))

	var out bytes.Buffer
	RenderValues(&out, []object.Value{
		object.NewRecord([]object.Field{
			{Name: "name", Val: object.NewStr("alpha")},
			{Name: "size", Val: object.NewInt(5)},
		}),
		object.NewRecord([]object.Field{
			{Name: "name", Val: object.NewStr("beta")},
			{Name: "size", Val: object.NewInt(10)},
		}),
	})
	g.Assert(t, "render-table", out.Bytes())
}

func TestRenderValuesScalars(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))

	var out bytes.Buffer
	RenderValues(&out, []object.Value{
		object.NewInt(1),
		object.NewFloat(2.5),
		object.NewStr("hi"),
		object.NewBool(true),
	})
	g.Assert(t, "render-scalars", out.Bytes())
}

func TestPrompt(t *testing.T) {
	fx := newTestShell(t)
	assert.Equal(t, "user@forge:~$ ", fx.Prompt())

	require.NoError(t, fx.Session.FS().MkdirAll("/home/user/sub", 0755))
	require.NoError(t, fx.Session.Chdir("/home/user/sub"))
	assert.Equal(t, "user@forge:~/sub$ ", fx.Prompt())
}

func TestEvalLineRendersOutput(t *testing.T) {
	fx := newTestShell(t)
	out := fx.EvalLine(context.Background(), "open notes.txt | to-upper")
	require.NotNil(t, out)
	assert.Equal(t, "ALPHA\nBETA\n", fx.stdout.String())
	assert.Empty(t, fx.stderr.String())
}

func TestEvalLineReportsTypeErrors(t *testing.T) {
	fx := newTestShell(t)
	out := fx.EvalLine(context.Background(), "ls | to-upper")
	assert.Nil(t, out)
	assert.Empty(t, fx.stdout.String())
	assert.Contains(t, fx.stderr.String(), "type error:")
	assert.Contains(t, fx.stderr.String(), "^")
}

func TestEvalLineReportsParseErrors(t *testing.T) {
	fx := newTestShell(t)
	out := fx.EvalLine(context.Background(), "ls | | ls")
	assert.Nil(t, out)
	assert.Contains(t, fx.stderr.String(), "parse error:")
}

func TestStartupVars(t *testing.T) {
	fx := newTestShell(t)
	out := fx.EvalLine(context.Background(), "$answer + 1")
	require.NotNil(t, out)
	assert.Equal(t, "43\n", fx.stdout.String())
}

func TestAliasFromConfig(t *testing.T) {
	// Default config carries ll = ls -a -l.
	fx := newTestShell(t)
	out := fx.EvalLine(context.Background(), "ll | get name | length")
	require.NotNil(t, out)
	assert.Equal(t, "1\n", fx.stdout.String())
}

func TestDisabledBuiltinBecomesExternal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/user", 0755))

	cfg := config.Default()
	cfg.InheritEnv = false
	cfg.EventLog = ""
	cfg.DisabledBuiltins = []string{"star"}

	sh, err := NewShell(cfg, fs)
	require.NoError(t, err)

	_, ok := sh.Engine.Registry().LookupBuiltin("star")
	assert.False(t, ok)
}

func TestCheckSource(t *testing.T) {
	fx := newTestShell(t)
	errs, err := fx.CheckSource("ls | where size > 10 | get name")
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = fx.CheckSource("open notes.txt | sum")
	require.NoError(t, err)
	assert.Len(t, errs, 1)
}

func TestRunSource(t *testing.T) {
	fx := newTestShell(t)
	err := fx.RunSource(context.Background(), "x = 2\nif $x > 1 { echo big } else { echo small }")
	require.NoError(t, err)
	assert.Equal(t, "big\n", fx.stdout.String())
}

func TestParseLiteral(t *testing.T) {
	assert.Equal(t, object.NewInt(7), parseLiteral("7"))
	assert.Equal(t, object.NewFloat(1.5), parseLiteral("1.5"))
	assert.Equal(t, object.NewBool(true), parseLiteral("true"))
	assert.Equal(t, object.NewStr("words"), parseLiteral("words"))
}
