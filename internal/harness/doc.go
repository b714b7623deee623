// Package harness runs reaction scenarios and checks their traces.
//
// A scenario file (YAML, or CUE evaluated to concrete data) declares
// entities built from a fixed set of fixture components, resources, and
// reactions described by the data kinds they read, filter on and write.
// Each step applies writes and then runs the schedule. The harness records
// every system init, reaction run and completed sweep as a TraceEvent.
//
// # Determinism
//
// Every run uses a fresh world with testutil.DeterministicClock and
// sequential sweep ids ("sweep-1", "sweep-2", ...). Entities are spawned
// in file order and reactions after them, so entity ids and the order of
// runs within a sweep are stable across runs.
//
// # Writes
//
// A written component or resource is incremented on every run: position.x,
// health.points or score.value. A reaction that writes what it reads is
// rejected with a CONFLICTING_ACCESS error when the scenario is loaded.
// Writes land after the sweep's window, so a reaction that writes data
// another reaction reads triggers that reaction on the next sweep, never
// the current one.
//
// # Golden files
//
// RunWithGolden compares a canonical JSON snapshot of the trace against
// testdata/golden/<scenario>.golden using goldie. Run with -update to
// regenerate.
package harness
