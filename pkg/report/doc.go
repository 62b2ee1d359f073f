// Package report renders run reports and link plans for people and for
// machines, and maps a finished run to a process exit code.
//
// Text output is a pterm table styled with the pkg/style palette. When the
// destination is not a color terminal every ANSI sequence is stripped so the
// same text can be piped or logged. JSON and YAML encode the report types
// with their stable field names.
package report
