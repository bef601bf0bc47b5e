// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Perflog keeps a performance log for a Git repository.
It runs a configured list of benchmark commands at a configured list
of revisions, archives their output, and renders a Markdown report.

Usage:

	perflog [-repo=dir] [-config=analysis/config.toml] [-dir=analysis] \
		[-o=perflog.md] [-run] [-rerun] [-html] [-C=dir]

Perflog starts by making a bare clone of the repository into a
temporary directory. The repository is the one named by -repo,
or else $GIT_DIR, or else the current directory if it contains a .git
directory. Then, for each run listed in the configuration, in order,
perflog switches a scratch worktree to that revision and runs every
configured benchmark in it, one at a time.

By default perflog only prints what it would do. The -run flag makes it
actually clone, check out, run benchmarks, and write files.

# Configuration

The configuration file is TOML:

	[[runs]]
	rev = "v0.1.0"

	[[runs]]
	rev = "main"

	[[benches]]
	name = "dfs"
	command = ["cargo", "bench", "--bench", "dfs-iai"]
	output = "target/iai"

	[[benches]]
	name = "time"
	shell = true
	command = ["hyperfine", "'./run $HOME/puzzles'", ">", "time.txt"]
	output = "time.txt"

	[trend]
	bench = "dfs"
	file = "cachegrind.out.dfs"
	output = "assets/instructions.svg"

Each command is a list of arguments. References to environment variables
($NAME or ${NAME}) are expanded in every argument before running.
Arguments are passed to the command as they are: a leading NAME=value
argument is not an environment assignment unless shell = true.
A bench with shell = true is run as "sh -c" with its arguments joined by spaces.
The output path, relative to the worktree unless absolute, is copied
into the data directory after the command succeeds: a directory is merged
into it, a file is copied into it.

# Data

Benchmark output is stored in dir/data/REV/BENCH (the -dir flag, default
“analysis”). A slash in REV is written as an underscore in directory
and template names, so origin/main is stored in dir/data/origin_main.
A bench whose directory already exists is not run again, which makes
adding a new run or bench to an existing log cheap.
The -rerun flag forces every bench to run again, replacing the old output.
A bench that fails leaves no directory behind and is retried on the next
invocation.

# Report

The report is generated from text/template files in dir/templates.
For every run there is a template named INDEX-REV.md, where INDEX is the
run's position in the configuration, zero-padded. Perflog creates it
from run_template.md the first time it sees the run. If a template
for the revision exists under another index (because runs were inserted
or removed), it is renamed, so hand-written notes follow their revision.
A template named for a different revision is never renamed.

The per-run templates are executed with .Run, .Index, and .Benches.
The top-level template perflog.md is then executed with .Runs (most
recent first; each has .Run and the rendered .Text), .Benches, and .Trend,
and written to perflog.md in the current directory (or the -o file). Templates can call

	insertFile REV NAME            contents of dir/data/REV/NAME
	regexReplace PATTERN REPL TEXT multiline regexp substitution
	normalizeLine TEXT             keep only text after the last \r

insertFile keeps only the text after the last carriage return on each
line, so progress bars print as their final state.

The -html flag also converts the report to perflog.html.

# Trend

When the configuration has a [trend] table, perflog reads the cachegrind
summary dir/data/REV/BENCH/FILE for every run, tabulates the instruction
and cache-miss counters, writes the table as CSV, and plots instructions
by revision to an SVG file (default dir/assets/instructions.svg).
Runs without a profile are left out of the table.

# Examples

Preview what a full run would do:

	perflog

Benchmark every configured revision and write the report:

	perflog -run

Run every benchmark again, even those with saved output:

	perflog -run -rerun
*/
package main
