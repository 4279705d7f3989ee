// Command voxbridge runs the call-automation bridge: it answers inbound
// phone calls, streams their audio over a websocket, transcribes the
// caller, and speaks synthesized replies back down the line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/avelow/voxbridge/internal/config"
	"github.com/avelow/voxbridge/internal/guardrails"
	"github.com/avelow/voxbridge/internal/health"
	"github.com/avelow/voxbridge/internal/media"
	"github.com/avelow/voxbridge/internal/observe"
	"github.com/avelow/voxbridge/internal/resilience"
	"github.com/avelow/voxbridge/internal/responder"
	"github.com/avelow/voxbridge/internal/server"
	"github.com/avelow/voxbridge/internal/state"
	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/provider/callctl"
	twilioctl "github.com/avelow/voxbridge/pkg/provider/callctl/twilio"
	"github.com/avelow/voxbridge/pkg/provider/llm"
	"github.com/avelow/voxbridge/pkg/provider/llm/anyllm"
	"github.com/avelow/voxbridge/pkg/provider/stt"
	"github.com/avelow/voxbridge/pkg/provider/stt/whisper"
	"github.com/avelow/voxbridge/pkg/provider/tts"
	"github.com/avelow/voxbridge/pkg/provider/tts/espeak"
	"github.com/avelow/voxbridge/pkg/provider/tts/piper"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxbridge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxbridge: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxbridge starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	metricsShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxbridge",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}

	// ── Speech recognition ────────────────────────────────────────────────────
	rec, err := buildRecognizer(cfg)
	if err != nil {
		slog.Error("failed to load speech recognizer", "err", err)
		return 1
	}

	// ── Speech synthesis ──────────────────────────────────────────────────────
	synth, err := buildSynthesizer(cfg)
	if err != nil {
		slog.Error("failed to build speech synthesis chain", "err", err)
		return 1
	}

	// ── Responder (LLM + guardrails) ──────────────────────────────────────────
	respond, err := buildResponder(cfg)
	if err != nil {
		slog.Error("failed to build responder", "err", err)
		return 1
	}

	// ── Call control ──────────────────────────────────────────────────────────
	var controller callctl.Controller
	if cfg.Telephony.AccountSID != "" {
		controller = twilioctl.New(cfg.Telephony.AccountSID, cfg.Telephony.AuthToken)
		slog.Info("telephony call control enabled")
	} else {
		slog.Warn("no telephony credentials — inbound webhook disabled")
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	calls := state.New()

	// The transcript callback closes over the streamer, which in turn owns
	// the pipeline; bind through a pointer set just below.
	var streamer *media.Streamer
	met := observe.DefaultMetrics()
	pipelineOpts := []stt.PipelineOption{
		stt.WithDropHook(func() { met.ChunksDropped.Add(context.Background(), 1) }),
	}
	if cfg.STT.QueueSize > 0 {
		pipelineOpts = append(pipelineOpts, stt.WithQueueSize(cfg.STT.QueueSize))
	}
	if cfg.STT.DropThreshold > 0 {
		pipelineOpts = append(pipelineOpts, stt.WithDropThreshold(cfg.STT.DropThreshold))
	}
	pipeline := stt.NewPipeline(rec,
		func(t stt.Transcript) { streamer.HandleTranscript(t) },
		pipelineOpts...,
	)
	defer pipeline.Close()

	streamerOpts := []media.StreamerOption{
		media.WithResponder(respond),
		media.WithGreeting(cfg.Persona.Greeting),
	}
	if cfg.Audio.RecordingDir != "" {
		streamerOpts = append(streamerOpts, media.WithRecordingDir(cfg.Audio.RecordingDir))
	}
	streamer = media.NewStreamer(calls, pipeline, synth, streamerOpts...)

	// ── Local microphone capture (optional) ───────────────────────────────────
	if cfg.Audio.CaptureDevice != "" {
		src := &audio.ALSASource{Device: cfg.Audio.CaptureDevice}
		if err := src.Start(ctx, streamer.SubmitCaptureFrame); err != nil {
			slog.Warn("audio capture unavailable — outbound mic path disabled", "err", err)
		} else {
			defer src.Stop()
			slog.Info("audio capture started", "device", cfg.Audio.CaptureDevice)
		}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	probes := health.New(
		health.Checker{Name: "tts", Check: func(context.Context) error {
			if !synth.Available() {
				return errors.New("no speech engine available")
			}
			return nil
		}},
		health.Checker{Name: "callctl", Check: func(context.Context) error {
			if controller == nil {
				return errors.New("no call controller configured")
			}
			return nil
		}},
	)

	srvOpts := []server.Option{
		server.WithListenAddr(cfg.Server.ListenAddr),
		server.WithPublicHost(cfg.Server.PublicHost),
		server.WithHealth(probes),
		server.WithServerLogger(logger),
	}
	if controller != nil {
		srvOpts = append(srvOpts, server.WithController(controller))
	}
	srv := server.New(streamer, calls, synth, srvOpts...)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	streamer.StopStreaming()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := metricsShutdown(shutdownCtx); err != nil {
		slog.Warn("metrics shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildRecognizer loads the configured speech recognizer. With engine
// "none" a no-op recognizer keeps the pipeline machinery in place without
// transcribing anything.
func buildRecognizer(cfg *config.Config) (stt.Recognizer, error) {
	switch cfg.STT.Engine {
	case "whisper":
		rec, err := whisper.New(cfg.STT.ModelPath, whisper.WithLanguage(cfg.STT.Language))
		if err != nil {
			return nil, err
		}
		slog.Info("speech recognition enabled", "engine", "whisper", "model", cfg.STT.ModelPath)
		return rec, nil
	default:
		slog.Warn("no speech recognition engine — transcription disabled")
		return nopRecognizer{}, nil
	}
}

// buildSynthesizer assembles the synthesis chain: piper as primary when a
// voice model is configured, espeak-ng as the always-present fallback.
func buildSynthesizer(cfg *config.Config) (tts.Service, error) {
	esp, err := espeak.New(cfg.TTS.CacheDir, espeak.WithVoice(cfg.TTS.EspeakVoice))
	if err != nil {
		return nil, err
	}

	if cfg.TTS.PiperModel == "" {
		slog.Info("speech synthesis enabled", "engine", esp.Name())
		return esp, nil
	}

	var piperOpts []piper.Option
	if cfg.TTS.CrossfadeMs > 0 {
		piperOpts = append(piperOpts, piper.WithCrossfade(time.Duration(cfg.TTS.CrossfadeMs)*time.Millisecond))
	}
	prim, err := piper.New(cfg.TTS.PiperModel, cfg.TTS.CacheDir, piperOpts...)
	if err != nil {
		return nil, err
	}

	chain := resilience.NewTTSFallback(prim, resilience.FallbackConfig{})
	chain.AddFallback(esp)
	slog.Info("speech synthesis enabled", "chain", chain.Name())
	return chain, nil
}

// buildResponder creates the reply generator: guardrails always, language
// model only when a backend is configured (echo mode otherwise).
func buildResponder(cfg *config.Config) (*responder.Responder, error) {
	screen, err := guardrails.New(cfg.Guardrails)
	if err != nil {
		return nil, err
	}

	var model llm.Provider
	if cfg.LLM.Backend != "" {
		var opts []anyllmlib.Option
		if cfg.LLM.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.LLM.APIKey))
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.LLM.BaseURL))
		}
		p, err := anyllm.New(cfg.LLM.Backend, cfg.LLM.Model, opts...)
		if err != nil {
			return nil, err
		}
		model = p
		slog.Info("language model enabled", "backend", cfg.LLM.Backend, "model", cfg.LLM.Model)
	} else {
		slog.Warn("no language model configured — replies echo the caller")
	}

	return responder.New(model, cfg.Persona, responder.WithGuardrails(screen)), nil
}

// nopRecognizer discards audio and never produces transcripts.
type nopRecognizer struct{}

func (nopRecognizer) AcceptAudio([]byte) (bool, error) { return false, nil }
func (nopRecognizer) Result() stt.Transcript           { return stt.Transcript{} }
func (nopRecognizer) Flush() (bool, error)             { return false, nil }
func (nopRecognizer) Close() error                     { return nil }

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
