// Package catalog loads the song library the broadcast draws music from.
//
// The library is a CSV file whose header may use any of several column
// names per field (title or name, path or filepath or file, and so on).
// Scan builds such a file from a directory of audio files by reading tags
// and measuring tempo and energy.
package catalog
