// Package llm provides the generative text capability used by the broadcast
// pipeline.
//
// Generator is the interface every backend implements. Client talks to an
// OpenAI-compatible chat completion endpoint; Chain layers several backends
// so a failing provider falls through to the next one.
//
// # Retry Behaviour
//
// Client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, llm.retry_attempts
// attempts). Context cancellation aborts retries immediately. Nothing above
// the client retries.
//
// # JSON Replies
//
// StripCodeFence removes markdown fences around a reply. DecodeReply goes
// further and extracts the outermost object or array when a model wraps JSON
// in prose.
package llm
