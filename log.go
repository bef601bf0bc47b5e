// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Progress messages.

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"
)

// A logger prints leveled progress messages, one per line.
type logger struct {
	*log.Logger
	pretty bool // color the level tags
}

func newLogger(w io.Writer, pretty bool) *logger {
	return &logger{Logger: log.New(w, "", 0), pretty: pretty}
}

// isPretty reports whether f is a terminal that understands vt100 color codes.
func isPretty(f *os.File) bool {
	return !(os.Getenv("TERM") == "" || os.Getenv("TERM") == "dumb") && term.IsTerminal(int(f.Fd()))
}

func (lg *logger) Debugf(format string, args ...any) { lg.printf("DEBUG", "2", format, args...) }
func (lg *logger) Infof(format string, args ...any)  { lg.printf("INFO", "1;32", format, args...) }
func (lg *logger) Warnf(format string, args ...any)  { lg.printf("WARN", "1;33", format, args...) }
func (lg *logger) Errorf(format string, args ...any) { lg.printf("ERROR", "1;31", format, args...) }

func (lg *logger) printf(level, attrs, format string, args ...any) {
	tag := "[" + level + "]"
	if lg.pretty {
		tag = fmt.Sprintf("\x1b[%sm%s\x1b[0m", attrs, tag)
	}
	lg.Printf("%s: %s", tag, fmt.Sprintf(format, args...))
}
