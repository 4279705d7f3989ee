package resilience

import (
	"context"
	"errors"
	"strings"

	"github.com/avelow/voxbridge/pkg/provider/tts"
)

// TTSFallback implements [tts.Service] with automatic failover across
// multiple synthesis engines. Each engine has its own circuit breaker, so a
// crashing neural synthesizer degrades the call to the formant fallback
// instead of silencing it.
type TTSFallback struct {
	group *FallbackGroup[tts.Service]
}

// Compile-time interface assertion.
var _ tts.Service = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// engine.
func NewTTSFallback(primary tts.Service, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional engine tried after all earlier ones.
func (f *TTSFallback) AddFallback(svc tts.Service) {
	f.group.AddFallback(svc.Name(), svc)
}

// Name lists the chain, e.g. "piper>espeak".
func (f *TTSFallback) Name() string {
	return strings.Join(f.group.Names(), ">")
}

// Available reports whether any engine in the chain is usable. It polls the
// engines directly so health checks do not disturb breaker state.
func (f *TTSFallback) Available() bool {
	for _, e := range f.group.entries {
		if e.value.Available() {
			return true
		}
	}
	return false
}

// Synthesize renders text with the first engine that succeeds. Engines that
// report themselves unavailable are skipped without tripping their breaker
// through a real synthesis attempt. Empty text is the caller's mistake, not
// an engine failure, so it never triggers failover.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, params tts.Params) (string, error) {
	var path string
	err := f.group.Execute(func(svc tts.Service) error {
		if !svc.Available() {
			return tts.ErrUnavailable
		}
		p, err := svc.Synthesize(ctx, text, params)
		if err != nil {
			return err
		}
		path = p
		return nil
	})
	if err != nil {
		if errors.Is(err, tts.ErrEmptyText) {
			return "", tts.ErrEmptyText
		}
		return "", err
	}
	return path, nil
}

// Voices merges the catalogues of every engine that exposes one, bypassing
// the breakers: a benched synthesizer can still report its installed voices.
func (f *TTSFallback) Voices(ctx context.Context) ([]tts.VoiceInfo, error) {
	var all []tts.VoiceInfo
	var lastErr error
	for _, e := range f.group.entries {
		voices, err := e.value.Voices(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, voices...)
	}
	if len(all) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, tts.ErrNotSupported
	}
	return all, nil
}
