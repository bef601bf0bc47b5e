// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"rsc.io/rf/diff"
)

// A fakeExec is an executor that records commands instead of running them.
// If fn is set, it is called for each command to simulate its effect.
type fakeExec struct {
	calls [][]string
	dirs  []string
	modes []runMode
	fn    func(dir string, cmd []string) error
}

func (e *fakeExec) run(mode runMode, dir string, cmd ...string) (string, error) {
	e.calls = append(e.calls, cmd)
	e.dirs = append(e.dirs, dir)
	e.modes = append(e.modes, mode)
	if e.fn != nil {
		if err := e.fn(dir, cmd); err != nil {
			return "", err
		}
	}
	return "", nil
}

// count returns the number of commands run whose first argument is name.
func (e *fakeExec) count(name string) int {
	n := 0
	for _, cmd := range e.calls {
		if len(cmd) > 0 && cmd[0] == name {
			n++
		}
	}
	return n
}

// newTestLab returns a Lab working in a fresh temporary directory,
// with real file system access, a fakeExec, and the log going to the returned buffer.
func newTestLab(t *testing.T) (*Lab, *fakeExec, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var l Lab
	l.Init(nil)
	var logBuf bytes.Buffer
	exec := new(fakeExec)
	l.Dir = filepath.Join(dir, "analysis")
	l.Config = filepath.Join(l.Dir, "config.toml")
	l.Output = filepath.Join(dir, "perflog.md")
	l.Apply = true
	l.log = newLogger(&logBuf, false)
	l.fs = new(localFS)
	l.exec = exec
	l.getenv = func(string) string { return "" }
	l.getwd = func() (string, error) { return dir, nil }
	l.stdout = io.Discard
	l.stderr = io.Discard
	return &l, exec, &logBuf
}

// writeFiles writes the files in the map, relative to dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, data := range files {
		name = filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0777))
		require.NoError(t, os.WriteFile(name, []byte(data), 0666))
	}
}

const labConfig = `
[[runs]]
rev = "v1"

[[runs]]
rev = "v2"

[[benches]]
name = "time"
command = ["bench", "--time"]
output = "out.txt"
`

var labTemplates = map[string]string{
	"config.toml":               labConfig,
	"templates/run_template.md": "Results for {{.Run.Rev}}:\n{{insertFile .Run.Rev \"time/out.txt\"}}",
	"templates/perflog.md":      "# Perflog\n{{range .Runs}}\n## {{.Run.Rev}}\n\n{{.Text}}{{end}}",
}

// simulate makes e act like git and a bench command that
// writes "result for REV" to out.txt in the worktree.
func simulate(e *fakeExec) {
	rev := ""
	e.fn = func(dir string, cmd []string) error {
		switch {
		case cmd[0] == "git" && slices.Contains(cmd, "switch"):
			rev = cmd[len(cmd)-1]
		case cmd[0] == "bench":
			return os.WriteFile(filepath.Join(dir, "out.txt"), []byte("progress 50%\rresult for "+rev+"\n"), 0666)
		}
		return nil
	}
}

func TestRun(t *testing.T) {
	l, exec, _ := newTestLab(t)
	l.Repo = "/src/sudoku"
	writeFiles(t, l.Dir, labTemplates)
	simulate(exec)

	require.NoError(t, l.Run())

	want := []byte(`# Perflog

## v2

Results for v2:
result for v2

## v1

Results for v1:
result for v1
`)
	have, err := os.ReadFile(l.Output)
	require.NoError(t, err)
	if !bytes.Equal(have, want) {
		t.Errorf("have:\n%s", have)
		t.Errorf("want:\n%s", want)
		d, err := diff.Diff("want", want, "have", have)
		if err == nil {
			t.Errorf("diff:\n%s", d)
		}
	}

	for _, name := range []string{"0-v1.md", "1-v2.md"} {
		_, err := os.Stat(filepath.Join(l.templateDir(), name))
		require.NoError(t, err, "run template %s", name)
	}
	require.Equal(t, 2, exec.count("bench"))

	// The scratch clone and worktree are gone.
	clone := exec.calls[0]
	require.Equal(t, []string{"git", "clone", "--bare", "/src/sudoku"}, clone[:4])
	_, err = os.Stat(clone[4])
	require.True(t, os.IsNotExist(err), "clone directory %s still exists", clone[4])
	worktree := exec.dirs[len(exec.dirs)-1]
	_, err = os.Stat(worktree)
	require.True(t, os.IsNotExist(err), "worktree %s still exists", worktree)

	// A second run reuses the saved results.
	exec.calls = nil
	require.NoError(t, l.Run())
	require.Equal(t, 0, exec.count("bench"))
	have2, err := os.ReadFile(l.Output)
	require.NoError(t, err)
	require.Equal(t, string(have), string(have2))
}

func TestRunDry(t *testing.T) {
	l, _, logBuf := newTestLab(t)
	l.Repo = "/src/sudoku"
	l.Apply = false
	l.exec = &dryExec{log: l.log}
	l.fs = &dryFS{log: l.log}
	writeFiles(t, l.Dir, labTemplates)

	require.NoError(t, l.Run())

	for _, name := range []string{l.Output, l.dataDir(), filepath.Join(l.templateDir(), "0-v1.md")} {
		_, err := os.Stat(name)
		require.True(t, os.IsNotExist(err), "dry run created %s", name)
	}
	log := logBuf.String()
	for _, want := range []string{
		"dry run: git clone --bare /src/sudoku",
		"switch --detach v2",
		"(v2) running time",
		"dry run: (cd ",
		"bench --time",
		"dry run: write " + l.Output,
	} {
		require.Contains(t, log, want)
	}
}

func TestRunConfigError(t *testing.T) {
	l, exec, _ := newTestLab(t)
	l.Repo = "/src/sudoku"
	writeFiles(t, l.Dir, map[string]string{
		"config.toml": "runs = [{rev = 1}]\nbenches = []\n",
	})
	err := l.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "runs[0].rev")
	require.Contains(t, err.Error(), l.Config)
	require.Empty(t, exec.calls)
}

func TestRunCheckoutError(t *testing.T) {
	l, exec, _ := newTestLab(t)
	l.Repo = "/src/sudoku"
	writeFiles(t, l.Dir, labTemplates)
	exec.fn = func(dir string, cmd []string) error {
		if slices.Contains(cmd, "switch") {
			return io.ErrUnexpectedEOF
		}
		return nil
	}
	err := l.Run()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, 0, exec.count("bench"))
	_, err = os.Stat(l.Output)
	require.True(t, os.IsNotExist(err))
}

func TestPadWidth(t *testing.T) {
	for _, tt := range []struct{ n, pad int }{
		{0, 1}, {1, 1}, {9, 1}, {10, 2}, {99, 2}, {100, 3},
	} {
		if pad := padWidth(tt.n); pad != tt.pad {
			t.Errorf("padWidth(%d) = %d, want %d", tt.n, pad, tt.pad)
		}
	}
}

func TestCopyInto(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFiles(t, src, map[string]string{
		"a.txt":       "a",
		"sub/b.txt":   "b",
		"sub/c/d.txt": "d",
	})
	writeFiles(t, dst, map[string]string{
		"a.txt":    "old",
		"keep.txt": "keep",
	})
	fs := new(localFS)
	require.NoError(t, fs.CopyInto(dst, src))
	for name, want := range map[string]string{
		"a.txt":       "a",
		"keep.txt":    "keep",
		"sub/b.txt":   "b",
		"sub/c/d.txt": "d",
	} {
		data, err := os.ReadFile(filepath.Join(dst, name))
		require.NoError(t, err)
		require.Equal(t, want, string(data), name)
	}

	// A single file lands inside the directory.
	require.NoError(t, fs.CopyInto(dst, filepath.Join(src, "sub", "b.txt")))
	data, err := os.ReadFile(filepath.Join(dst, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "b", string(data))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, false)
	lg.Infof("a %d", 1)
	lg.Debugf("b")
	lg.Warnf("c")
	lg.Errorf("d")
	require.Equal(t, "[INFO]: a 1\n[DEBUG]: b\n[WARN]: c\n[ERROR]: d\n", buf.String())

	buf.Reset()
	lg = newLogger(&buf, true)
	lg.Warnf("c")
	require.True(t, strings.HasPrefix(buf.String(), "\x1b[1;33m[WARN]\x1b[0m: c"), "%q", buf.String())
}
