// Package executor runs a validated task graph to completion.
//
// A single coordinator goroutine owns all run state. It dispatches ready
// tasks to a bounded worker pool, receives completion messages, and decides
// what becomes ready next. Tasks whose prerequisites did not succeed are
// skipped. Every state transition is delivered to an EventSink, and the
// outcome of every task is collected in a RunReport.
package executor
