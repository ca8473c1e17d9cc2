// Package progress carries run and task lifecycle events from the pipeline to
// telemetry sinks. Events are batched on a single background goroutine so the
// pipeline never waits on a sink.
package progress
