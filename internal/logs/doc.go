// Package logs reads the MorningCast run log for `morningcast logs`.
//
// Tail returns the last N lines or everything after a byte offset, and can
// wait for new lines in follow mode. Lines can be narrowed to one broadcast
// run; both the console and JSON log formats carry the run_id field.
package logs
