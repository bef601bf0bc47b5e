// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Instruction count trends.

package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"rsc.io/cmd/perflog/internal/cachegrind"
)

// trendColumns are the column labels of a Trend table.
var trendColumns = []string{
	"revision",
	"instructions",
	"L1 instruction misses",
	"LL instruction misses",
	"data reads",
	"L1 read misses",
	"LL read misses",
	"data writes",
	"L1 write misses",
	"LL write misses",
}

// A Trend is a table of cachegrind counters, one row per run, in run order.
type Trend struct {
	Columns []string
	Rows    []TrendRow
	SVG     string // plot file
}

// A TrendRow is the counters for a single run.
type TrendRow struct {
	Rev string
	*cachegrind.Counters
}

// Values returns the row's cells, matching Trend.Columns.
func (r *TrendRow) Values() []string {
	c := r.Counters
	row := []string{r.Rev}
	for _, n := range []int64{
		c.Instructions,
		c.L1InstrMisses, c.LLInstrMisses,
		c.DataReads, c.L1ReadMisses, c.LLReadMisses,
		c.DataWrites, c.L1WriteMisses, c.LLWriteMisses,
	} {
		row = append(row, strconv.FormatInt(n, 10))
	}
	return row
}

// Markdown returns the table in Markdown syntax.
func (t *Trend) Markdown() string {
	var b strings.Builder
	line := func(cells []string) {
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	line(t.Columns)
	sep := []string{"---"}
	for range t.Columns[1:] {
		sep = append(sep, "--:")
	}
	line(sep)
	for i := range t.Rows {
		line(t.Rows[i].Values())
	}
	return b.String()
}

// aggregateTrend tabulates and plots the configured cachegrind profiles.
func (l *Lab) aggregateTrend() error {
	if l.cfg.Trend == nil {
		return nil
	}
	t, err := l.aggregate()
	if err != nil {
		return err
	}
	l.trend = t
	if len(t.Rows) == 0 {
		l.log.Warnf("no profiles found for %s, not plotting", l.cfg.Trend.Bench)
		return nil
	}
	if err := l.writeCSV(t); err != nil {
		return err
	}
	return l.plot(t)
}

// aggregate reads the profile for each run.
// Runs without a profile are logged and left out.
// A profile that cannot be parsed is an error.
func (l *Lab) aggregate() (*Trend, error) {
	tc := l.cfg.Trend
	t := &Trend{
		Columns: trendColumns,
		SVG:     l.trendPath(),
	}
	for _, run := range l.cfg.Runs {
		file := filepath.Join(l.dataDir(), escapeRev(run.Rev), tc.Bench, tc.File)
		data, err := l.fs.ReadFile(file)
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Warnf("(%s) no profile: %s does not exist", run.Rev, file)
			continue
		}
		if err != nil {
			return nil, err
		}
		c, err := cachegrind.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		t.Rows = append(t.Rows, TrendRow{Rev: run.Rev, Counters: c})
	}
	return t, nil
}

// trendPath returns the path of the SVG plot.
func (l *Lab) trendPath() string {
	out := l.cfg.Trend.Output
	if !filepath.IsAbs(out) {
		out = filepath.Join(l.Dir, out)
	}
	return out
}

// plot draws instructions by revision as an SVG line chart.
func (l *Lab) plot(t *Trend) error {
	p := plot.New()
	p.Title.Text = "Instructions"
	p.X.Label.Text = "revision"
	p.Y.Label.Text = "instructions"

	pts := make(plotter.XYs, len(t.Rows))
	var revs []string
	for i, r := range t.Rows {
		pts[i].X = float64(i)
		pts[i].Y = float64(r.Instructions)
		revs = append(revs, r.Rev)
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	p.Add(plotter.NewGrid(), line, points)
	p.NominalX(revs...)

	w, err := p.WriterTo(max(4, vg.Length(len(revs)))*vg.Inch, 4*vg.Inch, "svg")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return err
	}
	if err := l.fs.MkdirAll(filepath.Dir(t.SVG), 0777); err != nil {
		return err
	}
	l.log.Infof("writing %s", t.SVG)
	return l.fs.WriteFile(t.SVG, buf.Bytes(), 0666)
}

// writeCSV writes the table next to the plot, with a .csv extension.
func (l *Lab) writeCSV(t *Trend) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(t.Columns)
	for i := range t.Rows {
		w.Write(t.Rows[i].Values())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	name := strings.TrimSuffix(t.SVG, filepath.Ext(t.SVG)) + ".csv"
	if err := l.fs.MkdirAll(filepath.Dir(name), 0777); err != nil {
		return err
	}
	l.log.Infof("writing %s", name)
	return l.fs.WriteFile(name, buf.Bytes(), 0666)
}
