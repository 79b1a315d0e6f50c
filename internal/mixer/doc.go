// Package mixer assembles the broadcast audio with ffmpeg filter graphs.
//
// Assembly is a linear chain of file-to-file stages: bed excerpts are cut
// around each song's hook, crossfaded into one bed, ducked under the voice
// with a sidechain compressor, followed by the closing song after a short
// silence, and finally exported with tags and cover art. Each stage writes a
// new artifact and never modifies its inputs. Stages that have nothing to do
// (no bed, missing closing song) are skipped and the previous artifact flows
// through unchanged.
package mixer
