// Package broadcast coordinates one MorningCast run.
//
// Gather collects the context items (email digest, weather, calendar). The
// Coordinator then runs three generation stages in order: each item is
// refined into a spoken line, the lines and context are planned into
// segments with optional song cues, and the plan plus persona are written
// into a script. The script is normalized, voiced by the speech provider
// chain and mixed with the songs the plan names.
//
// Per-item refinement failures and song misses degrade. A malformed plan,
// an empty script, speech provider exhaustion and filter failures abort the
// run. The core never retries; retry policy lives in the generative and
// speech providers.
//
// Artifacts are named by a YYYYMMDD slug so a rerun on the same date
// overwrites its files. A lock file per slug keeps two runs for the same
// date from interleaving.
package broadcast
