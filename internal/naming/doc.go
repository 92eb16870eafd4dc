// Package naming derives per-file output directories and makes sure no two
// inputs of one run claim the same directory.
//
// The idempotency gate relies on each input owning a distinct directory, so
// collisions are rejected at dispatch time rather than renamed.
package naming
