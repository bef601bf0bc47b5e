// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cachegrind reads the summary counters from a cachegrind output file.
//
// A cachegrind file names its counters on an "events:" line
// and gives the program totals on a "summary:" line:
//
//	events: Ir I1mr ILmr Dr D1mr DLmr Dw D1mw DLmw
//	...
//	summary: 1234 5 5 600 7 3 200 1 1
package cachegrind

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Counters are the instruction and cache-simulation totals for one program run.
type Counters struct {
	Instructions  int64 // Ir
	L1InstrMisses int64 // I1mr
	LLInstrMisses int64 // ILmr
	DataReads     int64 // Dr
	L1ReadMisses  int64 // D1mr
	LLReadMisses  int64 // DLmr
	DataWrites    int64 // Dw
	L1WriteMisses int64 // D1mw
	LLWriteMisses int64 // DLmw

	events map[string]int64
}

var fields = []struct {
	event string
	field func(*Counters) *int64
}{
	{"Ir", func(c *Counters) *int64 { return &c.Instructions }},
	{"I1mr", func(c *Counters) *int64 { return &c.L1InstrMisses }},
	{"ILmr", func(c *Counters) *int64 { return &c.LLInstrMisses }},
	{"Dr", func(c *Counters) *int64 { return &c.DataReads }},
	{"D1mr", func(c *Counters) *int64 { return &c.L1ReadMisses }},
	{"DLmr", func(c *Counters) *int64 { return &c.LLReadMisses }},
	{"Dw", func(c *Counters) *int64 { return &c.DataWrites }},
	{"D1mw", func(c *Counters) *int64 { return &c.L1WriteMisses }},
	{"DLmw", func(c *Counters) *int64 { return &c.LLWriteMisses }},
}

// Get returns the total for the named event,
// including events that have no Counters field.
func (c *Counters) Get(event string) (int64, bool) {
	n, ok := c.events[event]
	return n, ok
}

// Parse reads a cachegrind output file.
// The first "events:" and "summary:" lines are used.
// It is an error for either line to be missing,
// for the two lines to have different lengths,
// or for any of the events with a Counters field to be missing.
func Parse(r io.Reader) (*Counters, error) {
	var events, summary []string
	var haveEvents, haveSummary bool
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	for s.Scan() {
		line := s.Text()
		if !haveEvents {
			if rest, ok := strings.CutPrefix(line, "events: "); ok {
				events, haveEvents = strings.Fields(rest), true
				continue
			}
		}
		if !haveSummary {
			if rest, ok := strings.CutPrefix(line, "summary: "); ok {
				summary, haveSummary = strings.Fields(rest), true
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "reading cachegrind output")
	}

	switch {
	case !haveEvents && !haveSummary:
		return nil, errors.New("missing events and summary lines")
	case !haveEvents:
		return nil, errors.New("missing events line")
	case !haveSummary:
		return nil, errors.New("missing summary line")
	}
	if len(events) != len(summary) {
		return nil, errors.Errorf("%d events but %d summary values", len(events), len(summary))
	}

	c := &Counters{events: make(map[string]int64, len(events))}
	for i, event := range events {
		n, err := strconv.ParseInt(summary[i], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "summary value for %s", event)
		}
		c.events[event] = n
	}
	for _, f := range fields {
		n, ok := c.events[f.event]
		if !ok {
			return nil, errors.Errorf("missing event %s", f.event)
		}
		*f.field(c) = n
	}
	return c, nil
}
