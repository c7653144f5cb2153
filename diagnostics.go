// Copyright © 2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mmdrt

import "fmt"

// Diagnostics accumulates the per-tick debug counters the error-handling
// design calls for: every data-driven anomaly (an out-of-range index, a
// degenerate IK configuration, a solver allocation that was skipped, a
// morph recursion that hit its depth limit) is absorbed silently and
// tallied here instead of aborting or panicking.
//
// Every field except Ticks mirrors a cumulative counter kept by the
// subsystem that detects the anomaly (skeleton.Skeleton, morph.Engine,
// physics.Bridge); Model.Tick re-reads those counters every tick, so Zero
// only resets the mirror here, not the subsystem's own running total.
type Diagnostics struct {
	Ticks int // ticks completed since the last Zero.

	IndexOutOfRange int // animation/morph referenced an unknown bone or morph.
	DegenerateIK    int // zero-length IK vector, skipped.
	MorphCycleDepth int // group/flip morph recursion hit the depth limit.
	AllocSkipped    int // solver body or joint omitted due to allocation failure.
}

// Zero resets all counters, typically called once per tick boundary by a
// host that wants per-tick rather than cumulative numbers.
func (d *Diagnostics) Zero() {
	d.Ticks = 0
	d.IndexOutOfRange = 0
	d.DegenerateIK = 0
	d.MorphCycleDepth = 0
	d.AllocSkipped = 0
}

// Dump prints the current counters, useful for debug_log-enabled runs.
func (d *Diagnostics) Dump() {
	fmt.Printf("ticks:%d oob:%d degenerate_ik:%d morph_cycle:%d alloc_skipped:%d\n",
		d.Ticks, d.IndexOutOfRange, d.DegenerateIK, d.MorphCycleDepth, d.AllocSkipped)
}
