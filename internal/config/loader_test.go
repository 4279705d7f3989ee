package config

import (
	"strings"
	"testing"
)

const fullConfig = `
server:
  listen_addr: ":9090"
  public_host: bridge.example.com
  log_level: debug
telephony:
  account_sid: AC123
  auth_token: $VOXBRIDGE_TEST_TOKEN
stt:
  model_path: /models/ggml-base.en.bin
  language: en
  queue_size: 300
  drop_threshold: 250
tts:
  piper_model: /models/en_US-lessac-medium.onnx
  espeak_voice: en-gb
  crossfade_ms: 60
llm:
  backend: ollama
  model: llama3.2
persona:
  system_prompt: You answer the phone for a clinic.
  greeting: Hello, thanks for calling.
  temperature: 0.4
  max_tokens: 128
guardrails:
  blocked_terms: [password]
  refusal: I can't discuss that.
audio:
  recording_dir: /var/lib/voxbridge/recordings
`

func TestLoadFromReaderFull(t *testing.T) {
	t.Setenv("VOXBRIDGE_TEST_TOKEN", "tok-secret")
	cfg, err := LoadFromReader(strings.NewReader(fullConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != LogDebug {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Telephony.AuthToken != "tok-secret" {
		t.Fatalf("env secret not expanded: %q", cfg.Telephony.AuthToken)
	}
	if cfg.STT.Engine != "whisper" {
		t.Fatalf("stt engine default = %q, want whisper when model_path is set", cfg.STT.Engine)
	}
	if cfg.Persona.Greeting != "Hello, thanks for calling." {
		t.Fatalf("persona = %+v", cfg.Persona)
	}
	if len(cfg.Guardrails.BlockedTerms) != 1 {
		t.Fatalf("guardrails = %+v", cfg.Guardrails)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("server:\n  public_host: x.example\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("listen_addr default = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Fatalf("log_level default = %q", cfg.Server.LogLevel)
	}
	if cfg.STT.Engine != "none" {
		t.Fatalf("stt engine default = %q, want none without model", cfg.STT.Engine)
	}
	if cfg.TTS.EspeakVoice != "en-us" {
		t.Fatalf("espeak voice default = %q", cfg.TTS.EspeakVoice)
	}
}

func TestLoadFromReaderRejectsUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  public_host: x\n  listen_adr: \":1\"\n"))
	if err == nil {
		t.Fatal("typoed field must be rejected")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing public host",
			yaml: "server:\n  listen_addr: \":8080\"\n",
			want: "public_host",
		},
		{
			name: "bad log level",
			yaml: "server:\n  public_host: x\n  log_level: verbose\n",
			want: "log_level",
		},
		{
			name: "whisper without model",
			yaml: "server:\n  public_host: x\nstt:\n  engine: whisper\n",
			want: "model_path",
		},
		{
			name: "bad llm backend",
			yaml: "server:\n  public_host: x\nllm:\n  backend: skynet\n  model: m\n",
			want: "llm.backend",
		},
		{
			name: "backend without model",
			yaml: "server:\n  public_host: x\nllm:\n  backend: ollama\n",
			want: "llm.model",
		},
		{
			name: "sid without token",
			yaml: "server:\n  public_host: x\ntelephony:\n  account_sid: AC1\n",
			want: "must be set together",
		},
		{
			name: "threshold above queue",
			yaml: "server:\n  public_host: x\nstt:\n  engine: none\n  queue_size: 10\n  drop_threshold: 20\n",
			want: "drop_threshold",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}
