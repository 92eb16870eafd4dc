// Package pipeline runs a configured step queue over a set of input files in
// parallel and collects the results into TSV reports.
//
// A run is coordinated by [Run]:
//
//   - [Load] resolves the [pipeline] section into a [Queue]. Any bad entry
//     stops the run before a single file is touched.
//   - [Discover] expands the input pattern. Each file gets its own output
//     directory, and the [Gate] decides per file whether to process it.
//   - A pool of worker goroutines runs the queue over each file. Every worker
//     loads its own queue and checks its fingerprint against the
//     coordinator's.
//   - The coordinator alone writes the report through an [Aggregator] and
//     records failures in an [ErrorSink].
//
// Files are independent: a failing step, a panic, or a record that cannot be
// reported only affects its own file.
package pipeline
