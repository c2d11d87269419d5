// Package tracing provides a thin wrapper around OpenTelemetry tracing so the
// rest of the code-base can use simple helpers (StartSpan, EndSpan) without
// importing the upstream packages directly. All instrumentation is kept in a
// separate package so that applications which do not require tracing can
// exclude it from their build.
package tracing
