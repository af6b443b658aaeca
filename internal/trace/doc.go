// Package trace follows a compiler run from the project build down to
// single contracts, the stages of each build attempt and optimizer passes.
//
// A tracer travels in the context together with the current span:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopeStage, "optimize")
//	defer func() { span.End(err) }()
//
// Events of a contract carry its path once an enclosing span was started
// with WithContract. Sinks are Stream (text or NDJSON), Ring (the last N
// events, dumped after a failed build) and Tee.
//
// Levels select scopes: phase shows project and contract spans, detail adds
// stages, debug adds passes. The error level keeps only failed spans.
package trace
