// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// A Lab holds all the state for one perflog invocation.
type Lab struct {
	Repo   string // -repo
	Config string // -config
	Dir    string // -dir
	Output string // -o
	Apply  bool   // -run
	Rerun  bool   // -rerun
	HTML   bool   // -html

	exec   executor   // replaced for testing
	fs     fileSystem // replaced for testing
	log    *logger    // replaced for testing
	getenv func(string) string
	getwd  func() (string, error)

	stdout io.Writer // bench output
	stderr io.Writer

	cfg   *Config
	repo  string // repository being benchmarked
	trend *Trend // nil unless the config has a [trend] table
}

// A fileSystem performs the file operations a Lab needs.
// Operations that change the file system are skipped (and logged)
// by the dry-run implementation; MkdirTemp always creates a directory.
type fileSystem interface {
	CopyInto(dir, src string) error
	MkdirAll(name string, mode fs.FileMode) error
	MkdirTemp(dir, pattern string) (string, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	RemoveAll(name string) error
	Rename(oldname, newname string) error
	Stat(name string) (fs.FileInfo, error)
	WriteFile(name string, data []byte, mode fs.FileMode) error
}

func (l *Lab) Init(flags *flag.FlagSet) {
	*l = Lab{
		Config: filepath.Join("analysis", "config.toml"),
		Dir:    "analysis",
		Output: "perflog.md",
		log:    newLogger(os.Stdout, isPretty(os.Stdout)),
		getenv: os.Getenv,
		getwd:  os.Getwd,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if flags != nil {
		flags.StringVar(&l.Repo, "repo", "", "benchmark the git repository in `dir`")
		flags.StringVar(&l.Config, "config", l.Config, "read configuration from `file`")
		flags.StringVar(&l.Dir, "dir", l.Dir, "keep data and templates in `dir`")
		flags.StringVar(&l.Output, "o", l.Output, "write the report to `file`")
		flags.BoolVar(&l.Apply, "run", false, "run benchmarks and write files (default is a dry run)")
		flags.BoolVar(&l.Rerun, "rerun", false, "rerun benchmarks that already have saved output")
		flags.BoolVar(&l.HTML, "html", false, "also write the report as HTML")
	}
}

func (l *Lab) Run() error {
	steps := []func() error{
		l.setup,
		l.loadConfig,
		l.findRepo,
		l.benchAll,
		l.aggregateTrend,
		l.report,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// setup installs the executor and file system for the -run mode,
// unless a test has already installed its own.
func (l *Lab) setup() error {
	if l.exec == nil {
		if l.Apply {
			l.exec = &localExec{stdout: l.stdout, stderr: l.stderr}
		} else {
			l.exec = &dryExec{log: l.log}
		}
	}
	if l.fs == nil {
		if l.Apply {
			l.fs = new(localFS)
		} else {
			l.fs = &dryFS{log: l.log}
		}
	}
	if !l.Apply {
		l.log.Infof("dry run: use -run to run benchmarks and write files")
	}
	return nil
}

// benchAll checks out every configured run in turn
// and runs the benchmarks at each one.
func (l *Lab) benchAll() error {
	clone, err := l.cloneBare(l.repo)
	if err != nil {
		return err
	}
	defer l.removeScratch(clone)

	worktree, err := l.fs.MkdirTemp("", "perflog-bench.")
	if err != nil {
		return err
	}
	defer l.removeScratch(worktree)

	pad := padWidth(len(l.cfg.Runs))
	for i, run := range l.cfg.Runs {
		if err := l.ensureRunTemplate(i, pad, run); err != nil {
			return err
		}
		if err := l.checkoutRevision(clone, worktree, run.Rev); err != nil {
			return err
		}
		if err := l.runBenches(worktree, run); err != nil {
			return err
		}
	}
	return nil
}

// removeScratch removes a temporary directory made by MkdirTemp.
// It bypasses l.fs because scratch directories exist even in a dry run.
func (l *Lab) removeScratch(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		l.log.Errorf("%v", err)
	}
}

func (l *Lab) dataDir() string     { return filepath.Join(l.Dir, "data") }
func (l *Lab) templateDir() string { return filepath.Join(l.Dir, "templates") }

// padWidth returns the number of digits needed to print
// every index of a list of n runs with the same width.
func padWidth(n int) int {
	return len(strconv.Itoa(max(n, 1)))
}

type localFS struct{}

// CopyInto copies src into dir.
// A directory is merged into dir, overwriting files that exist in both.
// A file is copied to dir/base(src), keeping its mode and modification time.
func (*localFS) CopyInto(dir, src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyTree(dir, src)
	}
	return copyFile(filepath.Join(dir, filepath.Base(src)), src, info)
}

func (*localFS) MkdirAll(name string, mode fs.FileMode) error {
	return os.MkdirAll(name, mode)
}

func (*localFS) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (*localFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (*localFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (*localFS) RemoveAll(name string) error {
	return os.RemoveAll(name)
}

func (*localFS) Rename(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (*localFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (*localFS) WriteFile(name string, data []byte, mode fs.FileMode) error {
	return os.WriteFile(name, data, mode)
}

func copyTree(dst, src string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0777)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(target)
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(target, path, info)
		}
		return nil // sockets, devices, and the like
	})
}

func copyFile(dst, src string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// O_CREATE only applies the mode to new files.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// A dryFS is a fileSystem that reads the real file system
// but only logs changes to it.
type dryFS struct {
	localFS
	log *logger
}

func (d *dryFS) CopyInto(dir, src string) error {
	d.log.Debugf("dry run: copy %s into %s", src, dir)
	return nil
}

func (d *dryFS) MkdirAll(name string, mode fs.FileMode) error {
	d.log.Debugf("dry run: mkdir -p %s", name)
	return nil
}

func (d *dryFS) RemoveAll(name string) error {
	d.log.Debugf("dry run: rm -r %s", name)
	return nil
}

func (d *dryFS) Rename(oldname, newname string) error {
	d.log.Debugf("dry run: mv %s %s", oldname, newname)
	return nil
}

func (d *dryFS) WriteFile(name string, data []byte, mode fs.FileMode) error {
	d.log.Debugf("dry run: write %s (%d bytes)", name, len(data))
	return nil
}

// stringList flattens its arguments into a single []string.
// Each argument in args must have type string or []string.
func stringList(args ...any) []string {
	var x []string
	for _, arg := range args {
		switch arg := arg.(type) {
		case []string:
			x = append(x, arg...)
		case string:
			x = append(x, arg)
		default:
			panic("stringList: invalid argument of type " + fmt.Sprintf("%T", arg))
		}
	}
	return x
}
