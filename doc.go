// Package provisor provides process management helpers on top of a
// provenance-tracking process store.
//
// The package wires together pluggable service layers:
//
//   - query      – composable filters over stored process records
//   - classify   – classification of records by lifecycle state and type
//   - supervisor – blocking submission with reuse, resubmission and stalling
//     control
//   - quota      – remote free-space pre-checks before submission
//   - itemize    – conversion of list data into typed per-item nodes
//
// Provisor is designed to be embedded in host applications. End-users
// typically interact via the high-level Service facade exposed by the root
// package:
//
//	srv, _ := provisor.New(ctx)
//	q, _ := srv.Query(query.WithStates(record.StateRunning))
//	records, _ := q.All(ctx)
//	rec, source, _ := srv.Supervisor().BlockingSubmit(ctx, builder, "experiment-1")
//
// For more details see the individual sub-packages.
package provisor
