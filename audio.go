package tunebox

import "time"

type (
	// AudioBuffer is a mono buffer of float32 samples in [-1,1].
	AudioBuffer []float32

	// AudioSink receives rendered audio, e.g. an audio device.
	AudioSink interface {
		WriteAudio(buffer AudioBuffer) error
		Close() error
	}

	// AudioContext owns an output device.
	AudioContext interface {
		Output() AudioSink
		Close() error
	}
)

// DefaultSampleRate is the sample rate used when none is configured.
const DefaultSampleRate = 44100

// SamplesIn returns the number of samples that d spans at sampleRate.
func SamplesIn(d float64, sampleRate int) int {
	if !(d > 0) {
		return 0
	}
	return int(d * float64(sampleRate))
}

// DurationOf returns the duration of n samples at sampleRate.
func DurationOf(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}

// Duration converts seconds to a time.Duration.
func Duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
