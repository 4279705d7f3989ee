// Package audio provides the PCM building blocks for the voxbridge media
// path: the canonical frame format, WAV reading/writing, format
// normalization, sample-rate/channel conversion, crossfade joining of
// synthesized segments, and local capture sources.
//
// Everything on the phone-facing leg of the bridge speaks exactly one
// format: single-channel 16-bit signed little-endian PCM at 16 kHz, sliced
// into 20 ms frames. The constants below are the single source of truth for
// that format.
package audio

import "time"

const (
	// SampleRate is the canonical sample rate of the media path in Hz.
	SampleRate = 16000

	// Channels is the canonical channel count (mono).
	Channels = 1

	// BytesPerSample is fixed at 2 for 16-bit signed PCM.
	BytesPerSample = 2

	// FrameDuration is the wall-clock duration of one frame.
	FrameDuration = 20 * time.Millisecond

	// FrameSamples is the number of samples in one frame (320 at 16 kHz/20 ms).
	FrameSamples = SampleRate / 1000 * 20

	// FrameBytes is the byte size of one frame (640).
	FrameBytes = FrameSamples * BytesPerSample
)
