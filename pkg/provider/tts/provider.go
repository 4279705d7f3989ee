// Package tts defines the Service interface for text-to-speech engines.
//
// A TTS engine takes a sentence of text and produces a canonical-format WAV
// file on disk (16 kHz mono 16-bit PCM), which the media pacer then streams
// to the caller frame by frame. File-based output keeps the synthesis cache
// and the playback path on the same currency: paths to ready-to-stream WAVs.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when the text to synthesize is empty after
// normalization.
var ErrEmptyText = errors.New("tts: empty text")

// ErrUnavailable is returned when the engine (or every engine in a
// fallback chain) cannot synthesize right now.
var ErrUnavailable = errors.New("tts: engine unavailable")

// ErrNotSupported is returned by optional capabilities an engine does not
// implement, such as voice enumeration.
var ErrNotSupported = errors.New("tts: not supported")

// DefaultRate is the speaking rate, in words per minute, applied when a
// request does not set one.
const DefaultRate = 180

// Params carries per-request synthesis options. The zero value asks for
// the engine's configured voice at DefaultRate. An engine that cannot
// honor a field ignores it; only an unknown voice is an error.
type Params struct {
	// Voice selects an engine-specific voice ID, as listed by Voices.
	// Empty keeps the engine's configured voice.
	Voice string `json:"voice,omitempty"`

	// Rate is the speaking rate in words per minute. Zero or negative
	// means DefaultRate.
	Rate int `json:"rate,omitempty"`
}

// VoiceInfo describes one installed voice.
type VoiceInfo struct {
	// ID is the engine-specific voice identifier.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Language is the BCP-47 tag the voice speaks, when known.
	Language string `json:"language,omitempty"`

	// Engine names the engine providing the voice.
	Engine string `json:"engine"`
}

// Service is the abstraction over any TTS engine.
type Service interface {
	// Name identifies the engine in logs and health output.
	Name() string

	// Available reports whether the engine can synthesize right now.
	// The control surface uses it to answer before accepting a say
	// request; a false result maps to a client-visible failure instead
	// of a half-played utterance.
	Available() bool

	// Synthesize renders text to a canonical-format WAV file and returns
	// its path. The file lives in the engine's cache directory and must
	// not be deleted by the caller; repeated synthesis of the same text
	// and params may return the same path.
	Synthesize(ctx context.Context, text string, params Params) (string, error)

	// Voices lists the engine's installed voices. Engines without a
	// voice catalogue return ErrNotSupported.
	Voices(ctx context.Context) ([]VoiceInfo, error)
}
