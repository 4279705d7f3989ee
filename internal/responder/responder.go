// Package responder turns caller utterances into spoken replies. A
// language-model backend drives the conversation when one is configured;
// without one the bridge echoes what it heard, which keeps the audio loop
// testable end to end with no model installed.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelow/voxbridge/internal/guardrails"
	"github.com/avelow/voxbridge/pkg/provider/llm"
)

// maxHistoryTurns bounds the conversation window sent to the model. Phone
// exchanges are short; a sliding window keeps prompts small and latency
// predictable.
const maxHistoryTurns = 20

// defaultTimeout caps one model call. A caller hears dead air while we
// wait, so slow completions are abandoned.
const defaultTimeout = 15 * time.Second

// Persona configures how the bridge behaves on a call.
type Persona struct {
	// SystemPrompt instructs the model. Empty disables the model path
	// and the responder echoes.
	SystemPrompt string `yaml:"system_prompt"`

	// Greeting is spoken when a call connects.
	Greeting string `yaml:"greeting"`

	// Temperature and MaxTokens tune the completion.
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Responder produces replies, keeping a per-call sliding history.
type Responder struct {
	model   llm.Provider
	persona Persona
	screen  *guardrails.Screen
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	history []llm.Message
}

// Option configures a Responder.
type Option func(*Responder)

// WithGuardrails screens caller utterances before they reach the model and
// every reply before it is returned.
func WithGuardrails(s *guardrails.Screen) Option {
	return func(r *Responder) { r.screen = s }
}

// WithTimeout bounds one model call.
func WithTimeout(d time.Duration) Option {
	return func(r *Responder) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Responder) { r.log = log }
}

// New creates a Responder. model may be nil, in which case replies echo the
// utterance.
func New(model llm.Provider, persona Persona, opts ...Option) *Responder {
	r := &Responder{
		model:   model,
		persona: persona,
		timeout: defaultTimeout,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Greeting returns the persona's opening line.
func (r *Responder) Greeting() string { return r.persona.Greeting }

// Reset clears the conversation history; call it when a call ends.
func (r *Responder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// Reply produces the response to one caller utterance and appends both
// turns to the history. Both legs are screened: a blocked utterance never
// reaches the model or the history, and a blocked reply is replaced before
// it is spoken.
func (r *Responder) Reply(ctx context.Context, utterance string) (string, error) {
	if utterance == "" {
		return "", nil
	}

	if r.screen != nil {
		if spoken, rule := r.screen.Apply(utterance); rule != "" {
			r.log.Warn("utterance blocked by guardrail", "rule", rule)
			return spoken, nil
		}
	}

	reply, err := r.generate(ctx, utterance)
	if err != nil {
		return "", err
	}
	if r.screen != nil {
		spoken, rule := r.screen.Apply(reply)
		if rule != "" {
			r.log.Warn("reply blocked by guardrail", "rule", rule)
			reply = spoken
		}
	}

	r.mu.Lock()
	r.history = append(r.history,
		llm.Message{Role: "user", Content: utterance},
		llm.Message{Role: "assistant", Content: reply},
	)
	if len(r.history) > maxHistoryTurns {
		r.history = r.history[len(r.history)-maxHistoryTurns:]
	}
	r.mu.Unlock()

	return reply, nil
}

func (r *Responder) generate(ctx context.Context, utterance string) (string, error) {
	if r.model == nil || r.persona.SystemPrompt == "" {
		return fmt.Sprintf("You said: %s", utterance), nil
	}

	r.mu.Lock()
	messages := make([]llm.Message, len(r.history), len(r.history)+1)
	copy(messages, r.history)
	r.mu.Unlock()
	messages = append(messages, llm.Message{Role: "user", Content: utterance})

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	reply, err := r.model.Complete(cctx, llm.CompletionRequest{
		SystemPrompt: r.persona.SystemPrompt,
		Messages:     messages,
		Temperature:  r.persona.Temperature,
		MaxTokens:    r.persona.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("responder: completion: %w", err)
	}
	return reply, nil
}
