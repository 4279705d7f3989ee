// Package espeak implements tts.Service on the espeak-ng formant
// synthesizer. The voice is robotic; it exists as the always-installable
// fallback behind the neural engine so a call never goes silent.
package espeak

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/provider/tts"
	"github.com/avelow/voxbridge/pkg/textnorm"
)

// Compile-time assertion that Engine satisfies tts.Service.
var _ tts.Service = (*Engine)(nil)

// Engine shells out to espeak-ng.
type Engine struct {
	binary   string
	voice    string
	cacheDir string
	run      func(ctx context.Context, text, outPath, voice string, rate int) error

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinary overrides the espeak-ng executable path.
func WithBinary(path string) Option {
	return func(e *Engine) { e.binary = path }
}

// WithVoice selects the default espeak voice, e.g. "en-us". A per-request
// voice in tts.Params overrides it.
func WithVoice(v string) Option {
	return func(e *Engine) { e.voice = v }
}

// WithRunner replaces the process invocation, for tests.
func WithRunner(run func(ctx context.Context, text, outPath, voice string, rate int) error) Option {
	return func(e *Engine) { e.run = run }
}

// New creates an espeak engine writing into cacheDir.
func New(cacheDir string, opts ...Option) (*Engine, error) {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "voxbridge-tts")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("espeak: create cache dir: %w", err)
	}
	e := &Engine{binary: "espeak-ng", voice: "en-us", cacheDir: cacheDir}
	for _, o := range opts {
		o(e)
	}
	if e.run == nil {
		e.run = e.runEspeak
	}
	return e, nil
}

// Name implements tts.Service.
func (e *Engine) Name() string { return "espeak" }

// Available reports whether the binary is installed.
func (e *Engine) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Synthesize implements tts.Service. Voice and rate requests map directly
// onto espeak-ng's -v and -s flags and both feed the cache key, so the same
// text at different settings yields distinct files.
func (e *Engine) Synthesize(ctx context.Context, text string, params tts.Params) (string, error) {
	clean := textnorm.PreprocessForTTS(text)
	if clean == "" {
		return "", tts.ErrEmptyText
	}
	voice := e.voice
	if params.Voice != "" {
		voice = params.Voice
	}
	rate := params.Rate
	if rate <= 0 {
		rate = tts.DefaultRate
	}

	h := sha1.Sum([]byte(voice + "\x00" + strconv.Itoa(rate) + "\x00" + clean))
	out := filepath.Join(e.cacheDir, "espeak-"+hex.EncodeToString(h[:])+".wav")

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	raw := out + ".raw.wav"
	if err := e.run(ctx, clean, raw, voice, rate); err != nil {
		return "", fmt.Errorf("espeak: synthesize: %w", err)
	}
	defer os.Remove(raw)

	// espeak emits 22.05 kHz WAV; normalize before it hits the pacer.
	canon, err := audio.EnsureCanonicalWAV(raw)
	if err != nil {
		return "", err
	}
	if err := os.Rename(canon, out); err != nil {
		return "", fmt.Errorf("espeak: move output: %w", err)
	}
	return out, nil
}

// Voices implements tts.Service. The espeak catalogue is not exposed.
func (e *Engine) Voices(context.Context) ([]tts.VoiceInfo, error) {
	return nil, tts.ErrNotSupported
}

func (e *Engine) runEspeak(ctx context.Context, text, outPath, voice string, rate int) error {
	cmd := exec.CommandContext(ctx, e.binary, "-v", voice, "-s", strconv.Itoa(rate), "-w", outPath, "--", text)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(b)))
	}
	return nil
}
