// Package config loads, normalizes, and validates MorningCast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files and honours environment
// fallbacks such as OPENAI_API_KEY and AZURE_SPEECH_KEY. The Config type
// centralizes every knob the pipeline and CLI need and is passed explicitly
// into the coordinator; there is no process-wide configuration state.
package config
