// Package session holds the shell's mutable state: working directory,
// OS environment variables, and the scoped shell-variable bindings
// that mirror the type checker's scope chain frame for frame.
package session

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/anvilsh/anvil/core/object"
)

// Session is the environment manager. It is mutated only by the single
// active statement; jobs capture a Snapshot at spawn time so running
// stages never observe later mutations.
type Session struct {
	fs  afero.Fs
	cwd string

	envMu sync.RWMutex
	env   map[string]string

	frames []map[string]object.Value
}

// New creates a session rooted at dir over the given filesystem. An
// empty dir falls back to the process working directory.
func New(fs afero.Fs, dir string) *Session {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &Session{
		fs:     fs,
		cwd:    dir,
		env:    make(map[string]string),
		frames: []map[string]object.Value{{}},
	}
}

// InheritEnviron copies the process environment into the session.
func (s *Session) InheritEnviron() {
	for _, e := range os.Environ() {
		key, value, _ := strings.Cut(e, "=")
		s.Setenv(key, value)
	}
}

// FS returns the filesystem builtins operate on.
func (s *Session) FS() afero.Fs { return s.fs }

// Cwd returns the working directory.
func (s *Session) Cwd() string { return s.cwd }

// Chdir changes the working directory after verifying the target is a
// directory on the session's filesystem.
func (s *Session) Chdir(path string) error {
	abs := s.Abs(path)
	info, err := s.fs.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", path)
	}
	s.cwd = abs
	s.Setenv("PWD", abs)
	return nil
}

// Abs resolves path against the working directory.
func (s *Session) Abs(path string) string {
	if strings.HasPrefix(path, "/") {
		return cleanPath(path)
	}
	if path == "" || path == "." {
		return s.cwd
	}
	return cleanPath(s.cwd + "/" + path)
}

func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	var out []string
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return "/" + strings.Join(out, "/")
}

// Setenv sets an OS environment variable.
func (s *Session) Setenv(key, value string) {
	s.envMu.Lock()
	defer s.envMu.Unlock()
	s.env[key] = value
}

// Getenv returns an OS environment variable, "" when unset.
func (s *Session) Getenv(key string) string {
	s.envMu.RLock()
	defer s.envMu.RUnlock()
	return s.env[key]
}

// LookupEnv returns an OS environment variable and whether it is set.
func (s *Session) LookupEnv(key string) (string, bool) {
	s.envMu.RLock()
	defer s.envMu.RUnlock()
	v, ok := s.env[key]
	return v, ok
}

// Unsetenv removes an OS environment variable.
func (s *Session) Unsetenv(key string) {
	s.envMu.Lock()
	defer s.envMu.Unlock()
	delete(s.env, key)
}

// Environ returns the environment as KEY=value pairs, sorted for
// deterministic snapshots.
func (s *Session) Environ() []string {
	s.envMu.RLock()
	defer s.envMu.RUnlock()
	env := make([]string, 0, len(s.env))
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// ExpandEnv substitutes $name references in s against the environment.
func (s *Session) ExpandEnv(text string) string {
	return os.Expand(text, s.Getenv)
}

// Push opens a new shell-variable frame on block entry.
func (s *Session) Push() {
	s.frames = append(s.frames, map[string]object.Value{})
}

// Pop discards the innermost frame on block exit. The root frame is
// never popped.
func (s *Session) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Bind adds or overwrites a shell variable in the innermost frame.
func (s *Session) Bind(name string, v object.Value) {
	s.frames[len(s.frames)-1][name] = v
}

// Assign updates a shell variable in the frame where it already
// resolves; unknown names bind in the innermost frame. This mirrors
// the type scope's Assign so `while $x < 3 { x = $x + 1 }` advances
// the outer x instead of shadowing it away each iteration.
func (s *Session) Assign(name string, v object.Value) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i][name]; ok {
			s.frames[i][name] = v
			return
		}
	}
	s.Bind(name, v)
}

// Resolve searches shell-variable frames innermost to outermost.
func (s *Session) Resolve(name string) (object.Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}
	return object.Value{}, false
}

// Depth returns the number of live frames, mirroring the checker's
// scope depth.
func (s *Session) Depth() int { return len(s.frames) }

// Snapshot is the immutable environment a job captures at spawn time.
type Snapshot struct {
	Environ []string
	Dir     string
}

// Snapshot captures the spawn environment for a job. Later session
// mutations are invisible through the snapshot.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{Environ: s.Environ(), Dir: s.cwd}
}

// Getenv looks a key up in the captured environment.
func (s Snapshot) Getenv(key string) string {
	prefix := key + "="
	for _, kv := range s.Environ {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):]
		}
	}
	return ""
}
