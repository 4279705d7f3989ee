package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands $ENV secret
// references, and validates the result. Unknown fields are rejected so a
// typo fails loudly instead of silently using a default.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	expandSecrets(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.STT.Engine == "" {
		if cfg.STT.ModelPath != "" {
			cfg.STT.Engine = "whisper"
		} else {
			cfg.STT.Engine = "none"
		}
	}
	if cfg.STT.Language == "" {
		cfg.STT.Language = "en"
	}
	if cfg.TTS.EspeakVoice == "" {
		cfg.TTS.EspeakVoice = "en-us"
	}
}

// expandSecrets replaces "$NAME" values with the environment variable NAME.
func expandSecrets(cfg *Config) {
	for _, p := range []*string{
		&cfg.Telephony.AccountSID,
		&cfg.Telephony.AuthToken,
		&cfg.LLM.APIKey,
	} {
		if v, ok := strings.CutPrefix(*p, "$"); ok {
			*p = os.Getenv(v)
		}
	}
}

// Validate checks that cfg is coherent, returning a joined error listing
// every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.PublicHost == "" {
		errs = append(errs, errors.New("server.public_host is required; the telephony provider must be able to reach the media endpoint"))
	}

	switch cfg.STT.Engine {
	case "whisper":
		if cfg.STT.ModelPath == "" {
			errs = append(errs, errors.New("stt.model_path is required for the whisper engine"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("stt.engine %q is invalid; valid values: whisper, none", cfg.STT.Engine))
	}
	if cfg.STT.DropThreshold > 0 && cfg.STT.QueueSize > 0 && cfg.STT.DropThreshold > cfg.STT.QueueSize {
		errs = append(errs, errors.New("stt.drop_threshold must not exceed stt.queue_size"))
	}

	switch cfg.LLM.Backend {
	case "", "openai", "anthropic", "ollama", "groq", "llamacpp":
	default:
		errs = append(errs, fmt.Errorf("llm.backend %q is invalid; valid values: openai, anthropic, ollama, groq, llamacpp", cfg.LLM.Backend))
	}
	if cfg.LLM.Backend != "" && cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required when llm.backend is set"))
	}

	if (cfg.Telephony.AccountSID == "") != (cfg.Telephony.AuthToken == "") {
		errs = append(errs, errors.New("telephony.account_sid and telephony.auth_token must be set together"))
	}

	return errors.Join(errs...)
}
