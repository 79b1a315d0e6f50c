// Package feeds fetches the context a broadcast is written from: the daily
// forecast, upcoming calendar events and the pre-summarized email digest.
//
// Every source returns plain records. Weather and calendar failures are
// expected in normal operation (no network, no credentials) and callers
// degrade them to empty or NaN values rather than aborting a run.
package feeds
