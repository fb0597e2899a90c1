// SPDX-License-Identifier: MPL-2.0

// Package modloader admits and loads extension modules.
//
// Loading has two phases. Admission enumerates candidate files and scans each
// one against the active policy; scans run in parallel on a bounded worker
// pool. Loading then walks the admitted files in file-set order on a single
// goroutine, instantiates every capability type of each accepted module
// through a Runtime, and registers the instances in a Registry keyed by their
// declared identifier.
//
// Instantiation is only reachable through an admission produced by an
// accepted scan, so a rejected or unreadable file never contributes an
// instance. Per-file and per-type failures are logged, reported as
// Diagnostics and skipped; they never abort the batch.
package modloader
