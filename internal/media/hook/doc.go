// Package hook finds the rhythmic highlight of a song.
//
// The onset-strength curve is a spectral flux over a short-time Fourier
// transform of the mono waveform. The locator searches a configurable window
// (45-75 seconds by default) and falls back to the strongest onset in the
// whole song when the window misses the track. The same envelope drives the
// tempo and energy estimates written into the song catalogue.
package hook
