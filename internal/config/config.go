// Package config provides the configuration schema and YAML loader for the
// bridge.
package config

import (
	"github.com/avelow/voxbridge/internal/guardrails"
	"github.com/avelow/voxbridge/internal/responder"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration, typically loaded from a YAML file via
// [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Telephony  TelephonyConfig   `yaml:"telephony"`
	STT        STTConfig         `yaml:"stt"`
	TTS        TTSConfig         `yaml:"tts"`
	LLM        LLMConfig         `yaml:"llm"`
	Persona    responder.Persona `yaml:"persona"`
	Guardrails guardrails.Config `yaml:"guardrails"`
	Audio      AudioConfig       `yaml:"audio"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server binds (e.g. ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// PublicHost is the externally reachable host[:port] the telephony
	// provider dials for media, e.g. "bridge.example.com". Required:
	// Twilio cannot stream media to localhost.
	PublicHost string `yaml:"public_host"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// TelephonyConfig holds Twilio credentials.
type TelephonyConfig struct {
	// AccountSID and AuthToken authenticate against the Twilio REST API.
	// Either may name an environment variable with a "$" prefix, e.g.
	// "$TWILIO_AUTH_TOKEN", so the secret stays out of the file.
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
}

// STTConfig tunes the recognition path.
type STTConfig struct {
	// Engine selects the recognizer: "whisper" or "none". Default:
	// "whisper" when a model path is set, otherwise "none".
	Engine string `yaml:"engine"`

	// ModelPath points at the whisper.cpp model file (.bin).
	ModelPath string `yaml:"model_path"`

	// Language is the transcription language code.
	Language string `yaml:"language"`

	// QueueSize and DropThreshold tune the audio queue; zero picks the
	// defaults.
	QueueSize     int `yaml:"queue_size"`
	DropThreshold int `yaml:"drop_threshold"`
}

// TTSConfig tunes the synthesis chain.
type TTSConfig struct {
	// PiperModel points at the primary voice model (.onnx). Empty
	// disables the neural engine, leaving espeak alone in the chain.
	PiperModel string `yaml:"piper_model"`

	// EspeakVoice selects the fallback voice. Default "en-us".
	EspeakVoice string `yaml:"espeak_voice"`

	// CacheDir holds synthesized WAVs. Default under the OS temp dir.
	CacheDir string `yaml:"cache_dir"`

	// CrossfadeMs is the sentence-join overlap in milliseconds; zero
	// picks the default.
	CrossfadeMs int `yaml:"crossfade_ms"`
}

// LLMConfig selects the language-model backend for the responder.
type LLMConfig struct {
	// Backend is one of "openai", "anthropic", "ollama", "groq",
	// "llamacpp", or empty to disable the model (echo mode).
	Backend string `yaml:"backend"`

	// Model names the model, e.g. "llama3.2" or "gpt-4o-mini".
	Model string `yaml:"model"`

	// BaseURL overrides the backend endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates cloud backends. Supports the "$ENV" form.
	APIKey string `yaml:"api_key"`
}

// AudioConfig tunes the local audio endpoints.
type AudioConfig struct {
	// CaptureDevice is the ALSA input device for local agent mode.
	// Empty disables local capture; the bridge then transmits only
	// synthesized speech and played files.
	CaptureDevice string `yaml:"capture_device"`

	// RecordingDir stores per-call WAV recordings. Empty disables
	// recording.
	RecordingDir string `yaml:"recording_dir"`
}
