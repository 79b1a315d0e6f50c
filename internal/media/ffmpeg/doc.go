// Package ffmpeg runs ffmpeg as the audio filter engine.
//
// Callers describe each transformation as an argument list (inputs, a
// filter graph and an output). The Runner interface lets the mixer and the
// speech chain swap the real binary for a recorder in tests.
package ffmpeg
