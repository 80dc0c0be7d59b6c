package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/anvilsh/anvil/core/session"
)

// ErrNotFound is the spawn error for an executable absent from PATH.
var ErrNotFound = errors.New("executable file not found in $PATH")

// external is one spawned OS process stage. Its environment and
// working directory come from the job's spawn-time snapshot, never
// from the live session.
type external struct {
	name string
	args []string
	snap session.Snapshot

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// closeStdout is set when stdout is a pipe end the process owns;
	// closing it gives the downstream reader its EOF.
	closeStdout io.Closer
}

// run spawns the process and waits for it. Cancelling ctx kills it.
func (x *external) run(ctx context.Context, fs afero.Fs) error {
	if x.closeStdout != nil {
		defer x.closeStdout.Close()
	}

	path, err := lookPath(fs, x.snap, x.name)
	if err != nil {
		return fmt.Errorf("%s: %w", x.name, err)
	}

	cmd := exec.CommandContext(ctx, path, x.args...)
	cmd.Dir = x.snap.Dir
	cmd.Env = x.snap.Environ
	cmd.Stdin = x.stdin
	cmd.Stdout = x.stdout
	cmd.Stderr = x.stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func findExecutable(fs afero.Fs, file string) error {
	d, err := fs.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fmt.Errorf("%s: permission denied", file)
}

// lookPath searches the snapshot's PATH for an executable. A name
// containing a slash is resolved against the snapshot directory and
// the PATH is not consulted.
func lookPath(fs afero.Fs, snap session.Snapshot, file string) (string, error) {
	if strings.Contains(file, "/") {
		abs := file
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(snap.Dir, file)
		}
		if err := findExecutable(fs, abs); err != nil {
			return "", err
		}
		return abs, nil
	}
	for _, dir := range filepath.SplitList(snap.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(fs, path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}
