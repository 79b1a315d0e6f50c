// Package pcm decodes songs into mono floating-point samples for analysis.
//
// MP3 files are decoded natively with go-mp3; everything else (and any MP3
// the native decoder rejects) is piped through ffmpeg as signed 16-bit PCM.
package pcm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// AnalysisRate is the sample rate ffmpeg is asked to produce.
const AnalysisRate = 22050

// ErrNoAudio reports a file that decoded to zero samples.
var ErrNoAudio = errors.New("no audio samples decoded")

// Audio is a mono waveform in the range [-1, 1].
type Audio struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (a Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Decode loads path as mono audio.
func Decode(ctx context.Context, ffmpegBinary, path string) (Audio, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		audio, err := decodeMP3File(path)
		if err == nil {
			return audio, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return Audio{}, err
		}
	}
	return decodeFFmpeg(ctx, ffmpegBinary, path)
}

func decodeMP3File(path string) (Audio, error) {
	file, err := os.Open(path)
	if err != nil {
		return Audio{}, err
	}
	defer file.Close()
	return DecodeMP3(file)
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields interleaved 16-bit
// stereo; the result is downmixed and halved to roughly the analysis rate
// when the source runs above 32 kHz.
func DecodeMP3(r io.Reader) (Audio, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return Audio{}, fmt.Errorf("mp3 decode: %w", err)
	}
	data, err := io.ReadAll(decoder)
	if err != nil {
		return Audio{}, fmt.Errorf("mp3 decode: %w", err)
	}
	audio := FromS16LE(data, 2, decoder.SampleRate())
	if audio.SampleRate > 32000 {
		audio = halve(audio)
	}
	if len(audio.Samples) == 0 {
		return Audio{}, ErrNoAudio
	}
	return audio, nil
}

func decodeFFmpeg(ctx context.Context, ffmpegBinary, path string) (Audio, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(AnalysisRate),
		"-f", "s16le",
		"-",
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return Audio{}, fmt.Errorf("ffmpeg pcm extract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	audio := FromS16LE(stdout.Bytes(), 1, AnalysisRate)
	if len(audio.Samples) == 0 {
		return Audio{}, ErrNoAudio
	}
	return audio, nil
}

// FromS16LE converts interleaved little-endian 16-bit PCM into mono samples.
// A trailing partial frame is ignored.
func FromS16LE(data []byte, channels, sampleRate int) Audio {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := 2 * channels
	frames := len(data) / frameBytes
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * frameBytes
		for ch := 0; ch < channels; ch++ {
			v := int16(binary.LittleEndian.Uint16(data[base+2*ch:]))
			sum += float64(v) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}
	return Audio{Samples: samples, SampleRate: sampleRate}
}

func halve(a Audio) Audio {
	out := make([]float64, len(a.Samples)/2)
	for i := range out {
		out[i] = (a.Samples[2*i] + a.Samples[2*i+1]) / 2
	}
	return Audio{Samples: out, SampleRate: a.SampleRate / 2}
}
