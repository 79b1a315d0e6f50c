// Package preflight provides readiness checks for the binaries, services and
// files a broadcast run depends on.
//
// The CLI "morningcast doctor" command renders RunAll and CheckSystemDeps as
// tables. The run command calls CheckDirectoryAccess on the output directory
// before acquiring the run lock so a read-only mount fails before any LLM
// spend.
package preflight
