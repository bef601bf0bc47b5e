// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func profile(ir string) string {
	return "events: Ir I1mr ILmr Dr D1mr DLmr Dw D1mw DLmw\n" +
		"fl=src/solver.rs\n" +
		"summary: " + ir + " 1 0 50 2 0 10 1 0\n"
}

func trendLab(t *testing.T) *Lab {
	l, _, _ := newTestLab(t)
	l.cfg = &Config{
		Runs: []Run{{Rev: "v1"}, {Rev: "v2"}, {Rev: "v3"}},
		Benches: []Bench{
			{Name: "dfs", Command: []string{"cargo", "bench"}, Output: "target/iai"},
		},
		Trend: &TrendConfig{Bench: "dfs", File: "cachegrind.out.dfs", Output: defaultTrendOutput},
	}
	return l
}

func TestAggregate(t *testing.T) {
	l := trendLab(t)
	logBuf := new(strings.Builder)
	l.log = newLogger(logBuf, false)
	writeFiles(t, l.dataDir(), map[string]string{
		"v1/dfs/cachegrind.out.dfs": profile("100"),
		"v3/dfs/cachegrind.out.dfs": profile("90"),
	})

	tr, err := l.aggregate()
	require.NoError(t, err)
	require.Len(t, tr.Rows, 2)
	require.Equal(t, "v1", tr.Rows[0].Rev)
	require.Equal(t, int64(100), tr.Rows[0].Instructions)
	require.Equal(t, "v3", tr.Rows[1].Rev)
	require.Equal(t, int64(90), tr.Rows[1].Instructions)
	require.Equal(t, []string{"v3", "90", "1", "0", "50", "2", "0", "10", "1", "0"}, tr.Rows[1].Values())
	require.Contains(t, logBuf.String(), "[WARN]: (v2) no profile")

	require.Equal(t, `| revision | instructions | L1 instruction misses | LL instruction misses | data reads | L1 read misses | LL read misses | data writes | L1 write misses | LL write misses |
| --- | --: | --: | --: | --: | --: | --: | --: | --: | --: |
| v1 | 100 | 1 | 0 | 50 | 2 | 0 | 10 | 1 | 0 |
| v3 | 90 | 1 | 0 | 50 | 2 | 0 | 10 | 1 | 0 |
`, tr.Markdown())
}

func TestAggregateParseError(t *testing.T) {
	l := trendLab(t)
	writeFiles(t, l.dataDir(), map[string]string{
		"v2/dfs/cachegrind.out.dfs": "events: Ir I1mr ILmr Dr D1mr DLmr Dw D1mw DLmw\n",
	})
	_, err := l.aggregate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "summary")
	require.Contains(t, err.Error(), filepath.Join("v2", "dfs", "cachegrind.out.dfs"))
}

func TestAggregateTrend(t *testing.T) {
	l := trendLab(t)
	writeFiles(t, l.dataDir(), map[string]string{
		"v1/dfs/cachegrind.out.dfs": profile("100"),
		"v2/dfs/cachegrind.out.dfs": profile("120"),
	})
	svg := filepath.Join(l.Dir, "assets", "instructions.svg")
	writeFiles(t, l.Dir, map[string]string{"assets/instructions.svg": "old"})

	require.NoError(t, l.aggregateTrend())
	require.NotNil(t, l.trend)
	require.Equal(t, svg, l.trend.SVG)

	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	require.Contains(t, string(data), "<svg")
	require.Contains(t, string(data), "v2")

	data, err = os.ReadFile(filepath.Join(l.Dir, "assets", "instructions.csv"))
	require.NoError(t, err)
	require.Equal(t, "revision,instructions,L1 instruction misses,LL instruction misses,"+
		"data reads,L1 read misses,LL read misses,data writes,L1 write misses,LL write misses\n"+
		"v1,100,1,0,50,2,0,10,1,0\n"+
		"v2,120,1,0,50,2,0,10,1,0\n", string(data))
}

func TestAggregateTrendEmpty(t *testing.T) {
	l := trendLab(t)
	require.NoError(t, l.aggregateTrend())
	require.NotNil(t, l.trend)
	require.Empty(t, l.trend.Rows)
	_, err := os.Stat(filepath.Join(l.Dir, "assets"))
	require.True(t, os.IsNotExist(err))

	l.cfg.Trend = nil
	l.trend = nil
	require.NoError(t, l.aggregateTrend())
	require.Nil(t, l.trend)
}

func TestRenderTrend(t *testing.T) {
	l := trendLab(t)
	l.cfg.Runs = l.cfg.Runs[:1]
	writeFiles(t, l.dataDir(), map[string]string{
		"v1/dfs/cachegrind.out.dfs": profile("100"),
	})
	writeFiles(t, l.templateDir(), map[string]string{
		"0-v1.md":    "",
		"perflog.md": "![instructions]({{.Trend.SVG}})\n{{range .Trend.Rows}}{{.Rev}} {{.Instructions}}\n{{end}}",
	})
	require.NoError(t, l.aggregateTrend())
	require.NoError(t, l.report())
	data, err := os.ReadFile(l.Output)
	require.NoError(t, err)
	require.Equal(t, "![instructions]("+l.trend.SVG+")\nv1 100\n", string(data))
}
