// Package diag defines the diagnostic model shared by the compiler phases.
//
// A Diagnostic carries a Severity, a numeric Code with a stable string form
// (BYT, STK, EMT, BLD and PRJ ranges), a message and a Location naming the
// contract and bytecode offset (or line/column when the frontend supplied
// debug locations).
//
// Phases report through a Reporter so emission stays decoupled from storage;
// BagReporter collects into a sortable Bag; DedupReporter drops repeats.
// Package diag performs no IO; FormatShort produces the deterministic text the
// CLI prints.
package diag
