package hook

import (
	"context"
	"errors"
	"fmt"
	"math"

	"morningcast/internal/media/pcm"
)

// ErrNoOnsets reports audio too short to produce an onset curve.
var ErrNoOnsets = errors.New("no onset frames")

// Window bounds the hook search in seconds from track start.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// DefaultWindow is the 45-75 second search range.
var DefaultWindow = Window{Start: 45, End: 75}

// Result is the located highlight of one song.
type Result struct {
	TimeSeconds float64 `json:"time_seconds"`
	Strength    float64 `json:"strength"`
	InWindow    bool    `json:"in_window"`
}

// Analyze returns the strongest onset inside window, or the strongest onset
// overall when the song ends before the window starts or no frame lands in it.
// Ties resolve to the earliest frame.
func Analyze(audio pcm.Audio, window Window) (Result, error) {
	return analyzeEnvelope(OnsetEnvelope(audio.Samples, audio.SampleRate), audio.Duration(), window)
}

func analyzeEnvelope(env Envelope, duration float64, window Window) (Result, error) {
	if len(env.Strength) == 0 {
		return Result{}, ErrNoOnsets
	}
	if window.End < window.Start {
		window.Start, window.End = window.End, window.Start
	}

	best := -1
	if duration > window.Start {
		for t := range env.Strength {
			ts := env.FrameTime(t)
			if ts < window.Start || ts > window.End {
				continue
			}
			if best < 0 || env.Strength[t] > env.Strength[best] {
				best = t
			}
		}
	}
	if best >= 0 {
		return Result{TimeSeconds: env.FrameTime(best), Strength: env.Strength[best], InWindow: true}, nil
	}

	best = 0
	for t, v := range env.Strength {
		if v > env.Strength[best] {
			best = t
		}
	}
	return Result{TimeSeconds: env.FrameTime(best), Strength: env.Strength[best]}, nil
}

// EstimateTempo returns beats per minute from the autocorrelation of the
// onset envelope, restricted to 60-180 BPM and weighted toward 120 BPM.
// Zero means no periodicity was found.
func EstimateTempo(audio pcm.Audio) float64 {
	env := OnsetEnvelope(audio.Samples, audio.SampleRate)
	return tempoFromEnvelope(env)
}

func tempoFromEnvelope(env Envelope) float64 {
	n := len(env.Strength)
	fps := env.FrameRate()
	if n < 4 || fps <= 0 {
		return 0
	}
	minLag := int(math.Ceil(60 * fps / 180))
	maxLag := int(math.Floor(60 * fps / 60))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= n {
		maxLag = n - 1
	}
	if minLag > maxLag {
		return 0
	}

	var mean float64
	for _, v := range env.Strength {
		mean += v
	}
	mean /= float64(n)
	centered := make([]float64, n)
	for i, v := range env.Strength {
		centered[i] = v - mean
	}

	acf := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1 && lag < n; lag++ {
		if lag < 1 {
			continue
		}
		var sum float64
		for i := lag; i < n; i++ {
			sum += centered[i] * centered[i-lag]
		}
		acf[lag] = sum / float64(n-lag)
	}

	best := -1
	bestScore := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if acf[lag] <= 0 {
			continue
		}
		bpm := 60 * fps / float64(lag)
		score := acf[lag] * tempoPrior(bpm)
		if best < 0 || score > bestScore {
			best = lag
			bestScore = score
		}
	}
	if best < 0 {
		return 0
	}

	lag := float64(best)
	if best > 1 && best+1 < len(acf) {
		a, b, c := acf[best-1], acf[best], acf[best+1]
		if denom := a - 2*b + c; denom < 0 {
			shift := 0.5 * (a - c) / denom
			if math.Abs(shift) < 1 {
				lag += shift
			}
		}
	}
	return math.Round(60*fps/lag*10) / 10
}

// tempoPrior is a log-normal weight centered on 120 BPM with one octave of spread.
func tempoPrior(bpm float64) float64 {
	x := math.Log2(bpm / 120)
	return math.Exp(-0.5 * x * x)
}

// RMS returns the root-mean-square level of the waveform.
func RMS(audio pcm.Audio) float64 {
	if len(audio.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range audio.Samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(audio.Samples)))
}

var decodeAudio = pcm.Decode

// Locator decodes song files and analyzes them.
type Locator struct {
	FFmpegBinary string
	Window       Window
}

// NewLocator returns a locator with the given search window.
func NewLocator(ffmpegBinary string, window Window) *Locator {
	return &Locator{FFmpegBinary: ffmpegBinary, Window: window}
}

// Locate decodes path and returns its hook.
func (l *Locator) Locate(ctx context.Context, path string) (Result, error) {
	audio, err := decodeAudio(ctx, l.FFmpegBinary, path)
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", path, err)
	}
	result, err := Analyze(audio, l.Window)
	if err != nil {
		return Result{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	return result, nil
}

// Features holds the catalogue measurements for one song.
type Features struct {
	Duration float64
	BPM      float64
	Energy   float64
	Hook     Result
}

// Measure decodes path once and computes its hook, tempo and energy.
func (l *Locator) Measure(ctx context.Context, path string) (Features, error) {
	audio, err := decodeAudio(ctx, l.FFmpegBinary, path)
	if err != nil {
		return Features{}, fmt.Errorf("decode %s: %w", path, err)
	}
	env := OnsetEnvelope(audio.Samples, audio.SampleRate)
	result, err := analyzeEnvelope(env, audio.Duration(), l.Window)
	if err != nil {
		return Features{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	return Features{
		Duration: audio.Duration(),
		BPM:      tempoFromEnvelope(env),
		Energy:   math.Round(RMS(audio)*1000) / 1000,
		Hook:     result,
	}, nil
}

// SetDecoderForTests swaps the audio decoder used by Locator.
func SetDecoderForTests(fn func(context.Context, string, string) (pcm.Audio, error)) func() {
	prev := decodeAudio
	if fn == nil {
		decodeAudio = pcm.Decode
	} else {
		decodeAudio = fn
	}
	return func() { decodeAudio = prev }
}
