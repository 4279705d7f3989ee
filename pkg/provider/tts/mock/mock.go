// Package mock provides a scriptable test double for tts.Service.
package mock

import (
	"context"
	"sync"

	"github.com/avelow/voxbridge/pkg/provider/tts"
)

// Service is a mock implementation of tts.Service.
type Service struct {
	mu sync.Mutex

	// EngineName is returned by Name. Defaults to "mock".
	EngineName string

	// Unavailable makes Available return false.
	Unavailable bool

	// Path is returned by Synthesize when SynthesizeErr is nil.
	Path string

	// SynthesizeErr, if non-nil, is returned by Synthesize.
	SynthesizeErr error

	// VoiceList and VoicesErr script the Voices call.
	VoiceList []tts.VoiceInfo
	VoicesErr error

	// SynthesizeCalls records the text of every Synthesize invocation.
	SynthesizeCalls []string

	// SynthesizeParams records the params of every Synthesize invocation,
	// index-aligned with SynthesizeCalls.
	SynthesizeParams []tts.Params
}

// Ensure Service implements tts.Service at compile time.
var _ tts.Service = (*Service)(nil)

// Name implements tts.Service.
func (s *Service) Name() string {
	if s.EngineName == "" {
		return "mock"
	}
	return s.EngineName
}

// Available implements tts.Service.
func (s *Service) Available() bool { return !s.Unavailable }

// Synthesize records the call and returns the scripted path or error.
func (s *Service) Synthesize(_ context.Context, text string, params tts.Params) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, text)
	s.SynthesizeParams = append(s.SynthesizeParams, params)
	if s.SynthesizeErr != nil {
		return "", s.SynthesizeErr
	}
	if s.Path != "" {
		return s.Path, nil
	}
	return "/tmp/mock.wav", nil
}

// Voices returns the scripted voice list.
func (s *Service) Voices(context.Context) ([]tts.VoiceInfo, error) {
	if s.VoicesErr != nil {
		return nil, s.VoicesErr
	}
	return s.VoiceList, nil
}

// Calls returns a copy of the recorded Synthesize texts.
func (s *Service) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.SynthesizeCalls))
	copy(out, s.SynthesizeCalls)
	return out
}

// Params returns a copy of the recorded Synthesize params.
func (s *Service) Params() []tts.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tts.Params, len(s.SynthesizeParams))
	copy(out, s.SynthesizeParams)
	return out
}
