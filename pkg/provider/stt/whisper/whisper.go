// Package whisper implements stt.Recognizer on the whisper.cpp CGO bindings.
// The static library (libwhisper.a) and headers must be available at link
// time via LIBRARY_PATH and C_INCLUDE_PATH.
//
// Whisper is not a streaming engine, so the recognizer buffers speech and
// runs inference when it detects end-of-utterance: a run of low-energy
// frames after speech, or a full buffer.
package whisper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/provider/stt"
)

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

const (
	defaultLanguage     = "en"
	defaultSilenceAfter = 500 * time.Millisecond
	defaultMaxUtterance = 10 * time.Second

	// Normalized RMS below this counts as silence. Tuned for telephone
	// speech, which arrives quieter than studio audio.
	rmsThreshold = 0.01
)

// Recognizer buffers canonical-format PCM and runs whisper.cpp inference at
// utterance boundaries. It is driven from a single pipeline worker and is
// not safe for concurrent use.
type Recognizer struct {
	model    whisperlib.Model
	language string

	silenceAfter time.Duration
	maxUtterance time.Duration

	buffer    []byte
	hadSpeech bool
	silence   time.Duration
	last      stt.Transcript
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the transcription language code (e.g. "en", "de").
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithSilenceAfter sets how much trailing silence finalizes an utterance.
func WithSilenceAfter(d time.Duration) Option {
	return func(r *Recognizer) { r.silenceAfter = d }
}

// WithMaxUtterance caps how much speech buffers before a forced inference.
func WithMaxUtterance(d time.Duration) Option {
	return func(r *Recognizer) { r.maxUtterance = d }
}

// New loads the whisper model at modelPath. The model stays resident until
// Close.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	r := &Recognizer{
		model:        model,
		language:     defaultLanguage,
		silenceAfter: defaultSilenceAfter,
		maxUtterance: defaultMaxUtterance,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// AcceptAudio implements stt.Recognizer.
func (r *Recognizer) AcceptAudio(pcm []byte) (bool, error) {
	samples := audio.PCMToFloat32(pcm)
	dur := time.Duration(len(samples)) * time.Second / audio.SampleRate

	if audio.RMS(samples) < rmsThreshold {
		if !r.hadSpeech {
			return false, nil
		}
		r.buffer = append(r.buffer, pcm...)
		r.silence += dur
		if r.silence >= r.silenceAfter {
			return r.finalize()
		}
		return false, nil
	}

	r.hadSpeech = true
	r.silence = 0
	r.buffer = append(r.buffer, pcm...)
	if r.bufferedDuration() >= r.maxUtterance {
		return r.finalize()
	}
	return false, nil
}

// Result implements stt.Recognizer.
func (r *Recognizer) Result() stt.Transcript { return r.last }

// Flush implements stt.Recognizer.
func (r *Recognizer) Flush() (bool, error) {
	if !r.hadSpeech || len(r.buffer) == 0 {
		r.reset()
		return false, nil
	}
	return r.finalize()
}

// Close releases the model.
func (r *Recognizer) Close() error {
	if r.model == nil {
		return nil
	}
	err := r.model.Close()
	r.model = nil
	return err
}

func (r *Recognizer) bufferedDuration() time.Duration {
	samples := len(r.buffer) / audio.BytesPerSample
	return time.Duration(samples) * time.Second / audio.SampleRate
}

func (r *Recognizer) finalize() (bool, error) {
	pcm := r.buffer
	dur := r.bufferedDuration()
	r.reset()

	text, err := r.infer(pcm)
	if err != nil {
		return false, err
	}
	if text == "" {
		return false, nil
	}
	r.last = stt.Transcript{Text: text, Duration: dur}
	return true, nil
}

func (r *Recognizer) reset() {
	r.buffer = nil
	r.hadSpeech = false
	r.silence = 0
}

// infer runs whisper.cpp on the buffered utterance. Each inference gets a
// fresh context; contexts are not thread-safe but the model is shareable.
func (r *Recognizer) infer(pcm []byte) (string, error) {
	samples := audio.PCMToFloat32(pcm)

	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(r.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", r.language, "error", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if t := strings.TrimSpace(segment.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
