// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Configuration file.

package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// A Config is a parsed and validated configuration file.
type Config struct {
	Runs    []Run
	Benches []Bench
	Trend   *TrendConfig // nil if not configured
}

// A Run is a single revision to benchmark.
type Run struct {
	Rev string
}

// A Bench is a single benchmark command.
type Bench struct {
	Name    string   // name, unique in the config
	Shell   bool     // run Command with sh -c
	Command []string // argv, expanded with environment variables when run
	Output  string   // output file or directory, relative to the worktree
}

// A TrendConfig says where to find cachegrind summaries
// and where to plot them.
type TrendConfig struct {
	Bench  string // bench whose output holds the profile
	File   string // profile file name in the bench output
	Output string // SVG file, relative to the analysis directory
}

const defaultTrendOutput = "assets/instructions.svg"

// A FieldError reports a configuration field with the wrong type.
type FieldError struct {
	Field string // path to field, like "benches[0].command"
	Want  string
	Have  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("expected %s to be a %s but it was a %s instead", e.Field, e.Want, e.Have)
}

// A MissingKeyError reports a required configuration field that is not set.
type MissingKeyError struct {
	Field string
}

func (e *MissingKeyError) Error() string {
	return "missing required key " + e.Field
}

// A ConfigError lists every problem found in a configuration file.
type ConfigError struct {
	File string
	Errs []error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File + ": ")
	}
	b.WriteString("invalid config:")
	for _, err := range e.Errs {
		b.WriteString("\n\t" + err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() []error {
	return e.Errs
}

// loadConfig reads and validates the -config file.
func (l *Lab) loadConfig() error {
	data, err := l.fs.ReadFile(l.Config)
	if err != nil {
		return err
	}
	cfg, err := parseConfig(data)
	if err != nil {
		if cerr, ok := err.(*ConfigError); ok {
			cerr.File = l.Config
			return cerr
		}
		return fmt.Errorf("%s: %w", l.Config, err)
	}
	l.cfg = cfg
	l.log.Infof("loaded %d runs and %d benches from %s", len(cfg.Runs), len(cfg.Benches), l.Config)
	return nil
}

// parseConfig parses the TOML configuration in data.
// Type errors and missing keys are reported together in a *ConfigError.
func parseConfig(data []byte) (*Config, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	v := new(validator)
	cfg := new(Config)
	for i, t := range v.tables(doc, "", "runs") {
		path := fmt.Sprintf("runs[%d]", i)
		run := Run{Rev: v.str(t, path, "rev", true)}
		v.checkName(path+".rev", run.Rev, escapeRev(run.Rev))
		cfg.Runs = append(cfg.Runs, run)
	}

	seen := make(map[string]string)
	for i, t := range v.tables(doc, "", "benches") {
		path := fmt.Sprintf("benches[%d]", i)
		b := Bench{
			Name:    v.str(t, path, "name", true),
			Shell:   v.boolean(t, path, "shell"),
			Command: v.strings(t, path, "command"),
			Output:  v.str(t, path, "output", true),
		}
		v.checkName(path+".name", b.Name, b.Name)
		if prev, ok := seen[b.Name]; ok && b.Name != "" {
			v.errs = append(v.errs, fmt.Errorf("%s.name: duplicate bench name %q (also %s)", path, b.Name, prev))
		}
		seen[b.Name] = path
		cfg.Benches = append(cfg.Benches, b)
	}

	if t, ok := v.table(doc, "", "trend"); ok {
		tc := &TrendConfig{
			Bench:  v.str(t, "trend", "bench", true),
			File:   v.str(t, "trend", "file", true),
			Output: v.str(t, "trend", "output", false),
		}
		if tc.Output == "" {
			tc.Output = defaultTrendOutput
		}
		if _, ok := seen[tc.Bench]; !ok && tc.Bench != "" {
			v.errs = append(v.errs, fmt.Errorf("trend.bench: no bench named %q", tc.Bench))
		}
		cfg.Trend = tc
	}

	if len(v.errs) > 0 {
		return nil, &ConfigError{Errs: v.errs}
	}
	return cfg, nil
}

// A validator checks the fields of a decoded TOML document,
// accumulating errors instead of stopping at the first one.
type validator struct {
	errs []error
}

func (v *validator) lookup(t map[string]any, path, key string, required bool) (x any, field string, ok bool) {
	field = key
	if path != "" {
		field = path + "." + key
	}
	x, ok = t[key]
	if !ok && required {
		v.errs = append(v.errs, &MissingKeyError{Field: field})
	}
	return x, field, ok
}

func (v *validator) mismatch(field, want string, x any) {
	v.errs = append(v.errs, &FieldError{Field: field, Want: want, Have: tomlType(x)})
}

func (v *validator) str(t map[string]any, path, key string, required bool) string {
	x, field, ok := v.lookup(t, path, key, required)
	if !ok {
		return ""
	}
	s, ok := x.(string)
	if !ok {
		v.mismatch(field, "string", x)
	}
	return s
}

// boolean returns an optional boolean field, which defaults to false.
func (v *validator) boolean(t map[string]any, path, key string) bool {
	x, field, ok := v.lookup(t, path, key, false)
	if !ok {
		return false
	}
	b, ok := x.(bool)
	if !ok {
		v.mismatch(field, "boolean", x)
	}
	return b
}

func (v *validator) strings(t map[string]any, path, key string) []string {
	x, field, ok := v.lookup(t, path, key, true)
	if !ok {
		return nil
	}
	list, ok := x.([]any)
	if !ok {
		v.mismatch(field, "array", x)
		return nil
	}
	var out []string
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			v.mismatch(fmt.Sprintf("%s[%d]", field, i), "string", elem)
			continue
		}
		out = append(out, s)
	}
	return out
}

// tables returns a required array of tables.
func (v *validator) tables(t map[string]any, path, key string) []map[string]any {
	x, field, ok := v.lookup(t, path, key, true)
	if !ok {
		return nil
	}
	list, ok := x.([]any)
	if !ok {
		v.mismatch(field, "array", x)
		return nil
	}
	var out []map[string]any
	for i, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			v.mismatch(fmt.Sprintf("%s[%d]", field, i), "table", elem)
			continue
		}
		out = append(out, m)
	}
	return out
}

// table returns an optional table.
func (v *validator) table(t map[string]any, path, key string) (map[string]any, bool) {
	x, field, ok := v.lookup(t, path, key, false)
	if !ok {
		return nil, false
	}
	m, ok := x.(map[string]any)
	if !ok {
		v.mismatch(field, "table", x)
	}
	return m, ok
}

// checkName checks that elem, the directory name used for name,
// is a single path element.
func (v *validator) checkName(field, name, elem string) {
	if name == "" {
		return // reported as a missing key or wrong type
	}
	if elem == "." || elem == ".." || strings.ContainsAny(elem, `/\`) || elem != filepath.Base(elem) {
		v.errs = append(v.errs, fmt.Errorf("%s: %q cannot be used as a directory name", field, name))
	}
}

// tomlType returns the TOML name for the type of a decoded value.
func tomlType(x any) string {
	switch x.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "float"
	case []any:
		return "array"
	case map[string]any:
		return "table"
	case time.Time, toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return "datetime"
	}
	return fmt.Sprintf("%T", x)
}
