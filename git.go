// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Git interactions.

package main

import (
	"errors"
	"fmt"
	"path/filepath"
)

var errRepoNotFound = errors.New("git repo not found; use -repo or $GIT_DIR to name it")

// findRepo sets l.repo to the repository to benchmark.
func (l *Lab) findRepo() error {
	repo, err := l.locateRepo()
	if err != nil {
		return err
	}
	l.repo = repo
	return nil
}

// locateRepo returns the repository named by -repo, or else $GIT_DIR,
// or else the current directory if it has a .git directory.
func (l *Lab) locateRepo() (string, error) {
	if l.Repo != "" {
		return l.Repo, nil
	}
	if dir := l.getenv("GIT_DIR"); dir != "" {
		return dir, nil
	}
	wd, err := l.getwd()
	if err != nil {
		return "", err
	}
	if _, err := l.fs.Stat(filepath.Join(wd, ".git")); err == nil {
		return wd, nil
	}
	return "", errRepoNotFound
}

// cloneBare makes a bare clone of repo in a new temporary directory
// and returns the directory. The caller must remove it.
func (l *Lab) cloneBare(repo string) (string, error) {
	dir, err := l.fs.MkdirTemp("", "perflog-checkout.git.")
	if err != nil {
		return "", err
	}
	l.log.Infof("created %s for bare clone", dir)
	if _, err := l.runLocal(0, "", "git", "clone", "--bare", repo, dir); err != nil {
		l.removeScratch(dir)
		return "", err
	}
	l.log.Infof("cloned %s to %s", repo, dir)
	return dir, nil
}

// checkoutRevision switches worktree to rev, using the bare repository repo.
// Changes that benchmarks made to tracked files in worktree are discarded.
func (l *Lab) checkoutRevision(repo, worktree, rev string) error {
	l.log.Infof("checking out %s", rev)
	git := []string{"git", "--git-dir=" + repo, "--work-tree=" + worktree}

	// Before the first checkout there is nothing to restore and git complains.
	if _, err := l.runLocal(0, worktree, stringList(git, "restore", ".")...); err != nil {
		l.log.Debugf("git restore: %v", err)
	}

	out, err := l.runLocal(runTrim|runStderr, worktree, stringList(git, "switch", "--detach", rev)...)
	if err != nil {
		return fmt.Errorf("checkout %s: %w", rev, err)
	}
	if out != "" {
		l.log.Debugf("%s", out)
	}
	return nil
}
