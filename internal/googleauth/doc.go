// Package googleauth loads Google OAuth client secrets and cached tokens for
// the Calendar and Gmail fetchers, and runs the loopback authorization flow
// used by the auth subcommands.
package googleauth
