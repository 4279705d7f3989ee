// Package stt defines the speech-to-text contract for the inbound call leg
// and the Pipeline that feeds audio to a recognizer without ever blocking
// the media loop.
//
// The central abstraction is Recognizer: a push-based engine that accepts
// raw PCM chunks and reports when an utterance has been finalized. The
// Pipeline wraps a Recognizer with a bounded queue and a dedicated worker
// goroutine so recognition latency can never stall frame delivery.
package stt

import (
	"errors"
	"time"
)

// Queue defaults tuned for 20 ms frames at 16 kHz: 400 chunks is eight
// seconds of audio, and dropping starts at 350 so a slow recognizer sheds
// the newest audio instead of stalling the socket reader.
const (
	DefaultQueueSize     = 400
	DefaultDropThreshold = 350
	DefaultJoinTimeout   = 2 * time.Second
)

// ErrNotRunning is returned by SubmitChunk when the pipeline has not been
// started or has already stopped.
var ErrNotRunning = errors.New("stt: pipeline not running")

// Transcript is a finalized recognition result.
type Transcript struct {
	// Text is the recognized utterance.
	Text string

	// Confidence is the engine's confidence in [0, 1], or zero when the
	// engine does not report one.
	Confidence float64

	// Duration is the length of audio the utterance covered, when known.
	Duration time.Duration
}

// Recognizer is a push-based speech recognition engine. Implementations are
// called from a single pipeline worker goroutine and need not be safe for
// concurrent use.
type Recognizer interface {
	// AcceptAudio feeds one chunk of 16 kHz mono 16-bit PCM. It returns
	// true when the chunk completed an utterance, in which case Result
	// returns the finalized transcript.
	AcceptAudio(pcm []byte) (finalized bool, err error)

	// Result returns the most recently finalized transcript. Valid only
	// after AcceptAudio or Flush reported finalization.
	Result() Transcript

	// Flush finalizes any buffered audio, returning true if an utterance
	// was produced. Called once when the pipeline drains on stop.
	Flush() (finalized bool, err error)

	// Close releases the engine's resources. The pipeline calls it from
	// the worker goroutine after the final flush.
	Close() error
}
