// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Running commands.

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// A runMode controls the details of running a command.
type runMode int

const (
	_         runMode = 1 << iota
	runTrim           // trim spaces in output
	runStderr         // include stderr in output
	runStream         // send output to the lab's stdout and stderr instead of returning it
	runExact          // run cmd as given, with no NAME=value prefix
)

// An executor runs commands.
type executor interface {
	// run has the same semantics as runLocal,
	// except that it need not handle runTrim.
	run(mode runMode, dir string, cmd ...string) (out string, err error)
}

// runLocal runs cmd in dir according to mode.
// An empty dir means the current directory.
// If the command fails, runLocal returns an empty output
// and an error message that contains both stdout and stderr.
// If mode has the runTrim bit set, runLocal trims leading and trailing spaces from the output.
// If mode has the runStderr bit set, then stderr is included in the output on success
// rather than being discarded.
// If mode has the runStream bit set, the output is not collected at all.
func (l *Lab) runLocal(mode runMode, dir string, cmd ...string) (out string, err error) {
	out, err = l.exec.run(mode&^runTrim, dir, cmd...)
	if mode&runTrim != 0 {
		out = strings.TrimSpace(out)
	}
	return out, err
}

// A localExec is an executor that runs commands locally.
// Unless mode has the runExact bit set,
// leading NAME=value arguments are added to the command's environment.
type localExec struct {
	stdout io.Writer // for runStream
	stderr io.Writer
}

func (e *localExec) run(mode runMode, dir string, cmd ...string) (out string, err error) {
	if len(cmd) == 0 {
		return "", fmt.Errorf("missing command")
	}
	orig := cmd
	var env []string
	for mode&runExact == 0 && len(cmd) > 0 && strings.Contains(cmd[0], "=") {
		if env == nil {
			env = os.Environ()
		}
		env = append(env, cmd[0])
		cmd = cmd[1:]
	}
	if len(cmd) == 0 {
		return "", fmt.Errorf("command entirely environment: %s", strings.Join(orig, " "))
	}

	c := exec.Command(cmd[0], cmd[1:]...)
	c.Dir = dir
	c.Env = env

	if mode&runStream != 0 {
		c.Stdout = e.stdout
		c.Stderr = e.stderr
		if err := c.Run(); err != nil {
			return "", fmt.Errorf("%s: %w", strings.Join(orig, " "), err)
		}
		return "", nil
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if mode&runStderr != 0 {
		c.Stderr = &stdout // merge stdout and stderr
	}
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%s: %w\n%s%s", strings.Join(orig, " "), err, stdout.Bytes(), stderr.Bytes())
	}
	return stdout.String(), nil
}

// A dryExec is an executor that only logs the commands it is given.
type dryExec struct {
	log *logger
}

func (e *dryExec) run(mode runMode, dir string, cmd ...string) (out string, err error) {
	if dir != "" {
		e.log.Debugf("dry run: (cd %s && %s)", dir, strings.Join(cmd, " "))
	} else {
		e.log.Debugf("dry run: %s", strings.Join(cmd, " "))
	}
	return "", nil
}
