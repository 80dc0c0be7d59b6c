package builtins

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"

	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/object"
	"github.com/anvilsh/anvil/core/session"
	"github.com/anvilsh/anvil/core/types"
)

var dirEntry = types.Record(
	types.Field{Name: "name", Type: types.Str},
	types.Field{Name: "size", Type: types.Int},
	types.Field{Name: "mode", Type: types.Str},
	types.Field{Name: "modified", Type: types.Str},
	types.Field{Name: "is_dir", Type: types.Bool},
)

// absPath resolves p against the job's captured working directory,
// expanding a leading ~ from the captured HOME.
func absPath(snap session.Snapshot, p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		p = snap.Getenv("HOME") + p[1:]
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(snap.Dir, p)
}

func failTask(err error) interp.Task {
	return func(ctx context.Context, io interp.StageIO) error { return err }
}

func init() {
	register(types.Signature{
		Name:        "ls",
		Description: "List directory entries as records.",
		Input:       types.Unit,
		Params:      []types.Param{{Name: "args", Type: types.Str, Variadic: true}},
		Output:      types.Stream(dirEntry),
	}, lsCmd)

	register(types.Signature{
		Name:        "open",
		Description: "Read a file as a stream of lines.",
		Input:       types.Unit,
		Params:      []types.Param{{Name: "path", Type: types.Str}},
		Output:      types.Stream(types.Str),
	}, openCmd)

	register(types.Signature{
		Name:        "save",
		Description: "Write the input stream to a file, one line per value.",
		Input:       types.Stream(types.Var("T")),
		Params:      []types.Param{{Name: "path", Type: types.Str}},
		Output:      types.Unit,
	}, saveCmd)

	register(types.Signature{
		Name:        "pwd",
		Description: "Print the working directory.",
		Input:       types.Unit,
		Output:      types.Str,
	}, pwdCmd)

	register(types.Signature{
		Name:        "cd",
		Description: "Change the working directory.",
		Input:       types.Unit,
		Params:      []types.Param{{Name: "path", Type: types.Str, Variadic: true}},
		Output:      types.Unit,
	}, cdCmd)
}

func lsCmd(call *interp.Call) interp.Task {
	opts := getopt.New()
	listAll := opts.Bool('a', "don't ignore entries starting with .")
	opts.Bool('l', "accepted for familiarity; records always carry details")

	argv := []string{"ls"}
	for _, a := range call.Args {
		argv = append(argv, a.Str)
	}
	if err := opts.Getopt(argv, nil); err != nil {
		return failTask(fmt.Errorf("ls: %w", err))
	}

	dir := "."
	if rest := opts.Args(); len(rest) > 0 {
		dir = rest[0]
	}
	target := absPath(call.Snap, dir)

	return func(ctx context.Context, io interp.StageIO) error {
		infos, err := afero.ReadDir(call.FS, target)
		if err != nil {
			return fmt.Errorf("ls: %w", err)
		}
		for _, info := range infos {
			if !*listAll && strings.HasPrefix(info.Name(), ".") {
				continue
			}
			rec := object.NewRecord([]object.Field{
				{Name: "name", Val: object.NewStr(info.Name())},
				{Name: "size", Val: object.NewInt(info.Size())},
				{Name: "mode", Val: object.NewStr(info.Mode().String())},
				{Name: "modified", Val: object.NewStr(info.ModTime().Format(time.RFC3339))},
				{Name: "is_dir", Val: object.NewBool(info.IsDir())},
			})
			if err := send(ctx, io.Out, rec); err != nil {
				return err
			}
		}
		return nil
	}
}

func openCmd(call *interp.Call) interp.Task {
	target := absPath(call.Snap, call.Args[0].Str)
	return func(ctx context.Context, io interp.StageIO) error {
		f, err := call.FS.Open(target)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			if err := send(ctx, io.Out, object.NewStr(sc.Text())); err != nil {
				return err
			}
		}
		return sc.Err()
	}
}

func saveCmd(call *interp.Call) interp.Task {
	target := absPath(call.Snap, call.Args[0].Str)
	return func(ctx context.Context, io interp.StageIO) error {
		f, err := call.FS.Create(target)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-io.In:
				if !ok {
					return w.Flush()
				}
				if _, err := w.Write(append(object.EncodeLine(v), '\n')); err != nil {
					return fmt.Errorf("save: %w", err)
				}
			}
		}
	}
}

func pwdCmd(call *interp.Call) interp.Task {
	return func(ctx context.Context, io interp.StageIO) error {
		return send(ctx, io.Out, object.NewStr(call.Snap.Dir))
	}
}

func cdCmd(call *interp.Call) interp.Task {
	dir := call.Session.Getenv("HOME")
	if len(call.Args) > 0 {
		dir = absPath(call.Snap, call.Args[0].Str)
	}
	return func(ctx context.Context, io interp.StageIO) error {
		if dir == "" {
			return fmt.Errorf("cd: HOME not set")
		}
		return call.Session.Chdir(dir)
	}
}
