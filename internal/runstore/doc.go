// Package runstore records broadcast runs in a SQLite database inside the
// output directory.
//
// Each run is inserted as running when the pipeline starts and finalized
// as completed or failed. The history subcommand lists recent runs; a run
// left running by a crashed process is marked interrupted the next time the
// same date is produced.
package runstore
