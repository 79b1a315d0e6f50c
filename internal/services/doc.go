// Package services defines shared utilities consumed by the broadcast stages
// and the external capability providers.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, broadcast slugs and stage
//     names for logging and run history.
//   - Structured error markers plus the Wrap helper so every fatal failure
//     surfaces with the stage that produced it.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
