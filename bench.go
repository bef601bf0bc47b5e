// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Running benchmarks.

package main

import (
	"os"
	"path/filepath"
	"strings"
)

// runBenches runs every configured bench in worktree, which is checked out at run,
// saving each bench's output in dir/data/REV/BENCH.
// Benches with saved output are skipped unless l.Rerun is set.
// A failing bench is logged and its output directory removed;
// only errors manipulating the data directory stop runBenches.
func (l *Lab) runBenches(worktree string, run Run) error {
	revDir := filepath.Join(l.dataDir(), escapeRev(run.Rev))
	if err := l.fs.MkdirAll(revDir, 0777); err != nil {
		return err
	}
	for _, b := range l.cfg.Benches {
		dir := filepath.Join(revDir, b.Name)
		if _, err := l.fs.Stat(dir); err == nil {
			if !l.Rerun {
				l.log.Infof("(%s) found previous run of %s, skipping", run.Rev, b.Name)
				continue
			}
			// Start over, so that no stale output survives.
			if err := l.fs.RemoveAll(dir); err != nil {
				return err
			}
		}
		if err := l.fs.MkdirAll(dir, 0777); err != nil {
			return err
		}

		l.log.Infof("(%s) running %s", run.Rev, b.Name)
		if err := l.runBench(worktree, dir, b); err != nil {
			l.log.Warnf("(%s) failed to run bench %s: %v", run.Rev, b.Name, err)
			if err := l.fs.RemoveAll(dir); err != nil {
				return err
			}
		}
	}
	return nil
}

// runBench runs b in worktree and copies its output into dir.
func (l *Lab) runBench(worktree, dir string, b Bench) error {
	cmd := b.argv(l.getenv)
	l.log.Debugf("running `%s`", strings.Join(cmd, " "))
	if _, err := l.runLocal(runStream|runExact, worktree, cmd...); err != nil {
		return err
	}

	output := b.Output
	if !filepath.IsAbs(output) {
		output = filepath.Join(worktree, output)
	}
	l.log.Infof("storing output of %s", b.Name)
	return l.fs.CopyInto(dir, output)
}

// escapeRev returns rev in a form usable as a single path element,
// so that a revision like origin/main gets one data directory.
func escapeRev(rev string) string {
	return strings.ReplaceAll(rev, "/", "_")
}

// argv returns the command line for b,
// with environment variable references expanded using getenv.
func (b *Bench) argv(getenv func(string) string) []string {
	var cmd []string
	for _, arg := range b.Command {
		cmd = append(cmd, os.Expand(arg, getenv))
	}
	if b.Shell {
		return []string{"sh", "-c", strings.Join(cmd, " ")}
	}
	return cmd
}
