// Package notifications delivers broadcast events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the pipeline publishes unconditionally. Per-event toggles in the
// [notifications] config section suppress individual event types.
package notifications
