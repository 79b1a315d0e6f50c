package hook

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// FrameSize is the STFT length in samples.
	FrameSize = 2048
	// HopSize is the distance between frame centers in samples.
	HopSize = 512

	topDB    = 80.0
	powerEps = 1e-10
)

// Envelope is an onset-strength curve sampled once per hop.
type Envelope struct {
	Strength   []float64
	SampleRate int
}

// FrameTime converts a frame index to seconds.
func (e Envelope) FrameTime(frame int) float64 {
	if e.SampleRate <= 0 {
		return 0
	}
	return float64(frame*HopSize) / float64(e.SampleRate)
}

// FrameRate returns envelope frames per second.
func (e Envelope) FrameRate() float64 {
	return float64(e.SampleRate) / float64(HopSize)
}

// OnsetEnvelope computes the spectral flux of samples. Frames are centered on
// t*HopSize with zero padding, power spectra are converted to decibels and
// floored 80 dB below the loudest bin, and each frame's strength is the mean
// positive change per bin against the previous frame.
func OnsetEnvelope(samples []float64, sampleRate int) Envelope {
	env := Envelope{SampleRate: sampleRate}
	if len(samples) == 0 || sampleRate <= 0 {
		return env
	}
	frames := 1 + len(samples)/HopSize
	stft := newSpectrogram(samples)

	// First pass establishes the global peak for the dynamic range floor.
	peak := math.Inf(-1)
	for t := 0; t < frames; t++ {
		for _, v := range stft.frameDB(t) {
			if v > peak {
				peak = v
			}
		}
	}
	floor := peak - topDB

	env.Strength = make([]float64, frames)
	prev := make([]float64, FrameSize/2+1)
	for t := 0; t < frames; t++ {
		current := stft.frameDB(t)
		for i, v := range current {
			if v < floor {
				current[i] = floor
			}
		}
		if t > 0 {
			var sum float64
			for i, v := range current {
				if d := v - prev[i]; d > 0 {
					sum += d
				}
			}
			env.Strength[t] = sum / float64(len(current))
		}
		copy(prev, current)
	}
	return env
}

type spectrogram struct {
	samples []float64
	window  []float64
	fft     *fourier.FFT
	frame   []float64
	coeffs  []complex128
	db      []float64
}

func newSpectrogram(samples []float64) *spectrogram {
	return &spectrogram{
		samples: samples,
		window:  hann(FrameSize),
		fft:     fourier.NewFFT(FrameSize),
		frame:   make([]float64, FrameSize),
		coeffs:  make([]complex128, FrameSize/2+1),
		db:      make([]float64, FrameSize/2+1),
	}
}

// frameDB returns the power spectrum of frame t in decibels. The returned
// slice is reused between calls.
func (s *spectrogram) frameDB(t int) []float64 {
	start := t*HopSize - FrameSize/2
	for i := range s.frame {
		idx := start + i
		if idx < 0 || idx >= len(s.samples) {
			s.frame[i] = 0
			continue
		}
		s.frame[i] = s.samples[idx] * s.window[i]
	}
	s.coeffs = s.fft.Coefficients(s.coeffs, s.frame)
	for i, c := range s.coeffs {
		power := real(c)*real(c) + imag(c)*imag(c)
		s.db[i] = 10 * math.Log10(math.Max(power, powerEps))
	}
	return s.db
}

// hann returns a periodic Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}
