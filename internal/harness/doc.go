// Package harness runs scripted dispatcher scenarios and checks their traces.
//
// A scenario declares a set of scripted handlers (which handlers they wait
// for, whether they fail, panic or attempt a nested dispatch), the filters to
// install, and a list of steps (dispatches and unregistrations). The harness
// builds a real dispatcher from it, runs every step, and records a trace of
// everything the dispatcher did.
//
// Determinism:
//   - Handler tokens come from a private sequence per run (ID_1, ID_2, ...)
//   - Trace events are numbered by a per-run logical clock, starting at 1
//   - The run is journaled into a fresh in-memory store with a fixed run id
//
// Checks:
//   - expect_error on each step compares the step's outcome
//   - assertions compare handler order, call counts and journaled cycle status
//   - golden files compare the full trace byte-for-byte (canonical JSON)
//
// Scenario files are YAML (.yaml, .yml) or CUE (.cue); both decode into the
// same Scenario type.
package harness
