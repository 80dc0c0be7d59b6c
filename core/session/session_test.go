package session

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilsh/anvil/core/object"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/user/docs", 0755))
	return New(fs, "/home/user")
}

func TestChdir(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.Chdir("docs"))
	assert.Equal(t, "/home/user/docs", s.Cwd())
	assert.Equal(t, "/home/user/docs", s.Getenv("PWD"))

	require.NoError(t, s.Chdir(".."))
	assert.Equal(t, "/home/user", s.Cwd())

	assert.Error(t, s.Chdir("missing"))
	assert.Equal(t, "/home/user", s.Cwd(), "failed chdir must not move the cwd")
}

func TestAbs(t *testing.T) {
	s := newTestSession(t)

	cases := []struct {
		in       string
		expected string
	}{
		{"/etc/passwd", "/etc/passwd"},
		{"docs", "/home/user/docs"},
		{"./docs/../docs", "/home/user/docs"},
		{".", "/home/user"},
		{"../..", "/"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, s.Abs(tc.in))
		})
	}
}

func TestEnviron(t *testing.T) {
	s := newTestSession(t)
	s.Setenv("B", "2")
	s.Setenv("A", "1")

	assert.Equal(t, []string{"A=1", "B=2"}, s.Environ())

	v, ok := s.LookupEnv("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	s.Unsetenv("A")
	_, ok = s.LookupEnv("A")
	assert.False(t, ok)
}

func TestExpandEnv(t *testing.T) {
	s := newTestSession(t)
	s.Setenv("USER", "ada")
	assert.Equal(t, "hello ada", s.ExpandEnv("hello $USER"))
}

func TestScopedBindingsDropOnPop(t *testing.T) {
	s := newTestSession(t)
	s.Bind("outer", object.NewInt(1))

	s.Push()
	s.Bind("inner", object.NewStr("gone"))
	s.Bind("outer", object.NewInt(2)) // shadows

	v, ok := s.Resolve("outer")
	require.True(t, ok)
	assert.Equal(t, object.NewInt(2), v)

	s.Pop()
	_, ok = s.Resolve("inner")
	assert.False(t, ok, "inner binding must be unresolvable after block exit")

	v, ok = s.Resolve("outer")
	require.True(t, ok)
	assert.Equal(t, object.NewInt(1), v)
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestSession(t)
	s.Setenv("MODE", "before")
	snap := s.Snapshot()

	s.Setenv("MODE", "after")
	require.NoError(t, s.Chdir("docs"))

	assert.Contains(t, snap.Environ, "MODE=before")
	assert.NotContains(t, snap.Environ, "MODE=after")
	assert.Equal(t, "/home/user", snap.Dir)
}
