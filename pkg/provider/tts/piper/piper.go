// Package piper implements tts.Service by shelling out to the Piper neural
// synthesizer. Output is cached by content hash so repeated prompts (IVR
// menus, greetings) cost one synthesis each.
package piper

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/provider/tts"
	"github.com/avelow/voxbridge/pkg/textnorm"
)

// Compile-time assertion that Engine satisfies tts.Service.
var _ tts.Service = (*Engine)(nil)

// runFunc invokes the synthesizer binary for one sentence with the given
// voice model, writing a WAV to outPath. Injectable for tests.
type runFunc func(ctx context.Context, text, model, outPath string) error

// Engine synthesizes speech with the piper CLI. Long texts are split into
// sentences, synthesized clip by clip, and joined with a short crossfade so
// the seams do not click.
type Engine struct {
	binary   string
	model    string
	cacheDir string
	fade     time.Duration
	log      *slog.Logger
	run      runFunc

	// mu serializes synthesis of identical texts so concurrent requests
	// for the same prompt do not race on the cache file.
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinary overrides the piper executable path.
func WithBinary(path string) Option {
	return func(e *Engine) { e.binary = path }
}

// WithCrossfade sets the sentence-join overlap.
func WithCrossfade(d time.Duration) Option {
	return func(e *Engine) { e.fade = d }
}

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRunner replaces the process invocation, for tests.
func WithRunner(run func(ctx context.Context, text, model, outPath string) error) Option {
	return func(e *Engine) { e.run = run }
}

// New creates a piper engine using the given voice model (.onnx) and cache
// directory. The cache directory is created if missing.
func New(modelPath, cacheDir string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("piper: model path must not be empty")
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "voxbridge-tts")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("piper: create cache dir: %w", err)
	}
	e := &Engine{
		binary:   "piper",
		model:    modelPath,
		cacheDir: cacheDir,
		fade:     audio.DefaultCrossfade,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.run == nil {
		e.run = e.runPiper
	}
	return e, nil
}

// Name implements tts.Service.
func (e *Engine) Name() string { return "piper" }

// Available reports whether the binary and voice model are both present.
func (e *Engine) Available() bool {
	if _, err := exec.LookPath(e.binary); err != nil {
		return false
	}
	if _, err := os.Stat(e.model); err != nil {
		return false
	}
	return true
}

// Synthesize implements tts.Service. The result path is stable for a given
// text and voice model, so the pacer can stream it repeatedly. A requested
// voice must be an .onnx model installed next to the configured one, as
// listed by Voices. Piper bakes the speaking rate into the model, so
// params.Rate is ignored.
func (e *Engine) Synthesize(ctx context.Context, text string, params tts.Params) (string, error) {
	clean := textnorm.PreprocessForTTS(text)
	if clean == "" {
		return "", tts.ErrEmptyText
	}
	model, err := e.modelFor(params.Voice)
	if err != nil {
		return "", err
	}

	out := e.cachePath(model, clean)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := os.Stat(out); err == nil {
		e.log.Debug("tts cache hit", "engine", e.Name(), "path", out)
		return out, nil
	}

	sentences := textnorm.SplitSentences(clean)
	if len(sentences) == 0 {
		return "", tts.ErrEmptyText
	}

	start := time.Now()
	clips := make([]string, 0, len(sentences))
	defer func() {
		for _, c := range clips {
			os.Remove(c)
		}
	}()
	for _, s := range sentences {
		clip := filepath.Join(e.cacheDir, "sent-"+uuid.NewString()+".wav")
		if err := e.run(ctx, s, model, clip); err != nil {
			return "", fmt.Errorf("piper: synthesize %q: %w", truncate(s), err)
		}
		canon, err := audio.EnsureCanonicalWAV(clip)
		if err != nil {
			return "", err
		}
		if canon != clip {
			os.Remove(clip)
		}
		clips = append(clips, canon)
	}

	if err := audio.CrossfadeWAVFiles(clips, out, e.fade); err != nil {
		return "", err
	}
	e.log.Info("synthesized utterance",
		"engine", e.Name(), "sentences", len(sentences), "took", time.Since(start))
	return out, nil
}

// Voices lists the .onnx voice models installed next to the configured one.
func (e *Engine) Voices(ctx context.Context) ([]tts.VoiceInfo, error) {
	dir := filepath.Dir(e.model)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("piper: list voices in %q: %w", dir, err)
	}
	var voices []tts.VoiceInfo
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".onnx") {
			continue
		}
		id := strings.TrimSuffix(name, ".onnx")
		voices = append(voices, tts.VoiceInfo{
			ID:       id,
			Name:     id,
			Language: languageFromModel(id),
			Engine:   e.Name(),
		})
	}
	return voices, nil
}

// languageFromModel extracts the language tag from piper's conventional
// model naming, e.g. "en_US-lessac-medium" -> "en-US".
func languageFromModel(id string) string {
	lang, _, ok := strings.Cut(id, "-")
	if !ok {
		return ""
	}
	return strings.ReplaceAll(lang, "_", "-")
}

// modelFor resolves a requested voice ID to an installed model path. Empty
// keeps the configured model; anything else must be a sibling .onnx file.
func (e *Engine) modelFor(voice string) (string, error) {
	if voice == "" {
		return e.model, nil
	}
	model := filepath.Join(filepath.Dir(e.model), voice+".onnx")
	if _, err := os.Stat(model); err != nil {
		return "", fmt.Errorf("piper: voice %q not installed: %w", voice, err)
	}
	return model, nil
}

func (e *Engine) cachePath(model, text string) string {
	h := sha1.Sum([]byte(model + "\x00" + text))
	return filepath.Join(e.cacheDir, "piper-"+hex.EncodeToString(h[:])+".wav")
}

func (e *Engine) runPiper(ctx context.Context, text, model, outPath string) error {
	cmd := exec.CommandContext(ctx, e.binary, "--model", model, "--output_file", outPath)
	cmd.Stdin = strings.NewReader(text)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(b)))
	}
	return nil
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
