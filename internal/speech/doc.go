// Package speech renders the normalized script to a voice track.
//
// Providers are constructed lazily from an ordered list of factories. A
// factory that fails (missing credentials, missing binary) marks its
// provider unavailable and the chain moves on; a provider whose synthesis
// call fails is recorded the same way. The first provider to produce audio
// wins and its output is conformed to 16-bit stereo WAV for the mixer.
//
// Providers either read speech markup (Azure) or plain text (ElevenLabs,
// OpenAI, edge-tts). Plain-text providers receive script.SpeakableText, which
// strips markup, brackets, control characters and emoji.
package speech
