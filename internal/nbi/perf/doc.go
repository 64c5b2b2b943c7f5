// Package perf hosts opt-in benchmarks for the orientation service.
//
// The benchmarks are behind the `perf` build tag so they stay out of default
// test runs, but having this file without tags keeps the package discoverable
// by editors and `go list`.
package perf
