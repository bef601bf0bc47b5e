// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rendering the report.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"

	"rsc.io/markdown"
)

const (
	runTemplateFile    = "run_template.md" // boilerplate for new runs
	reportTemplateFile = "perflog.md"      // top-level report
)

// runTemplateName returns the name of the template for the index'th run,
// with the index zero-padded to pad digits so that names sort in run order.
func runTemplateName(index, pad int, run Run) string {
	return fmt.Sprintf("%0*d-%s.md", pad, index, escapeRev(run.Rev))
}

// ensureRunTemplate makes sure the template for the index'th run exists.
// If a template for the same revision exists under another name,
// for example because runs were added before it, ensureRunTemplate renames it.
// Otherwise it copies the boilerplate run template.
func (l *Lab) ensureRunTemplate(index, pad int, run Run) error {
	dir := l.templateDir()
	name := runTemplateName(index, pad, run)
	path := filepath.Join(dir, name)
	if _, err := l.fs.Stat(path); err == nil {
		l.log.Infof("found existing %s, skipping template creation", path)
		return nil
	}

	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	if old := findRunTemplate(entries, run); old != "" {
		old = filepath.Join(dir, old)
		l.log.Infof("renaming %s to %s", old, path)
		return l.fs.Rename(old, path)
	}

	l.log.Infof("creating %s from %s", path, runTemplateFile)
	data, err := l.fs.ReadFile(filepath.Join(dir, runTemplateFile))
	if err != nil {
		return err
	}
	return l.fs.WriteFile(path, data, 0666)
}

// findRunTemplate returns the name of an existing template for run, or "".
// A template named like a run template for the same revision wins
// over any other file whose name merely mentions the revision.
// Run templates of other revisions are never returned.
func findRunTemplate(entries []fs.DirEntry, run Run) string {
	rev := escapeRev(run.Rev)
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == runTemplateFile || name == reportTemplateFile {
			continue
		}
		if strings.Contains(name, rev) {
			names = append(names, name)
		}
	}
	var other string
	for _, name := range names {
		r, ok := runTemplateRev(name)
		if ok && r == rev {
			return name
		}
		if !ok && other == "" {
			other = name
		}
	}
	return other
}

// runTemplateRev returns the revision part of a run template name
// of the form INDEX-REV.md.
func runTemplateRev(name string) (rev string, ok bool) {
	index, rest, ok := strings.Cut(name, "-")
	if !ok || index == "" || strings.Trim(index, "0123456789") != "" {
		return "", false
	}
	return strings.CutSuffix(rest, ".md")
}

// normalizeLine returns the text after the last carriage return in line,
// which is what a terminal shows after progress output overwrites itself.
func normalizeLine(line []byte) string {
	if i := bytes.LastIndexByte(line, '\r'); i >= 0 {
		line = line[i+1:]
	}
	return string(line)
}

// insertFile returns the saved output file dir/data/rev/name,
// with each line passed through normalizeLine.
// A missing file is logged and yields an empty string,
// so that one missing result does not spoil the report.
func (l *Lab) insertFile(rev, name string) string {
	file := filepath.Join(l.dataDir(), escapeRev(rev), name)
	data, err := l.fs.ReadFile(file)
	if err != nil {
		l.log.Errorf("%v", err)
		return ""
	}
	var b strings.Builder
	for line := range bytes.Lines(data) {
		b.WriteString(normalizeLine(line))
	}
	return b.String()
}

// regexReplace replaces matches of the multiline regular expression pattern in text.
// Inside repl, $1 or ${name} refer to submatches, as in [regexp.Regexp.Expand].
func regexReplace(text, pattern, repl string) (string, error) {
	re, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(text, repl), nil
}

func (l *Lab) funcs() template.FuncMap {
	return template.FuncMap{
		"insertFile": l.insertFile,
		// Text comes last so that regexReplace works in pipelines.
		"regexReplace": func(pattern, repl, text string) (string, error) {
			return regexReplace(text, pattern, repl)
		},
		"normalizeLine": func(s string) string {
			return normalizeLine([]byte(s))
		},
	}
}

// A runData is the data for executing a run template.
type runData struct {
	Run     Run
	Index   int
	Benches []Bench
}

// A runReport is a run and its rendered template.
type runReport struct {
	Run  Run
	Text string
}

// A reportData is the data for executing the top-level report template.
type reportData struct {
	Runs    []runReport // most recent first
	Benches []Bench
	Trend   *Trend
}

// report renders the report from the templates for the configured runs.
func (l *Lab) report() error {
	pad := padWidth(len(l.cfg.Runs))
	var names []string
	for i, run := range l.cfg.Runs {
		names = append(names, runTemplateName(i, pad, run))
	}
	return l.render(names)
}

// render executes the run templates named by names, one per configured run,
// and then the top-level report template, writing the result to l.Output.
func (l *Lab) render(names []string) error {
	if len(names) != len(l.cfg.Runs) {
		return fmt.Errorf("have %d run templates for %d runs", len(names), len(l.cfg.Runs))
	}
	var runs []runReport
	for i, run := range l.cfg.Runs {
		tmpl, err := l.parseTemplate(names[i])
		if errors.Is(err, fs.ErrNotExist) && !l.Apply {
			// A dry run does not create run templates.
			l.log.Debugf("dry run: using %s for %s", runTemplateFile, names[i])
			tmpl, err = l.parseTemplate(runTemplateFile)
		}
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, &runData{Run: run, Index: i, Benches: l.cfg.Benches}); err != nil {
			return err
		}
		runs = append(runs, runReport{Run: run, Text: buf.String()})
	}
	slices.Reverse(runs)

	tmpl, err := l.parseTemplate(reportTemplateFile)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, &reportData{
		Runs:    runs,
		Benches: l.cfg.Benches,
		Trend:   l.trend,
	})
	if err != nil {
		return err
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}

	l.log.Infof("writing %s", l.Output)
	if err := l.fs.WriteFile(l.Output, buf.Bytes(), 0666); err != nil {
		return err
	}
	if l.HTML {
		return l.writeHTML(buf.Bytes())
	}
	return nil
}

func (l *Lab) parseTemplate(name string) (*template.Template, error) {
	data, err := l.fs.ReadFile(filepath.Join(l.templateDir(), name))
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(l.funcs()).Parse(string(data))
}

// writeHTML writes the Markdown report md as HTML next to l.Output.
func (l *Lab) writeHTML(md []byte) error {
	p := &markdown.Parser{
		HeadingID:     true,
		Strikethrough: true,
		TaskList:      true,
		AutoLinkText:  true,
		Table:         true,
		Emoji:         true,
		SmartDot:      true,
		SmartDash:     true,
		SmartQuote:    true,
	}
	doc := p.Parse(string(md))
	name := strings.TrimSuffix(l.Output, filepath.Ext(l.Output)) + ".html"
	l.log.Infof("writing %s", name)
	return l.fs.WriteFile(name, []byte(markdown.ToHTML(doc)), 0666)
}
