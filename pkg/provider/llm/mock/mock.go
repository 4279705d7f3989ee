// Package mock provides a scriptable test double for llm.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/avelow/voxbridge/pkg/provider/llm"
)

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// Reply is returned by Complete when Err is nil. If ReplyFunc is set
	// it takes precedence.
	Reply     string
	ReplyFunc func(req llm.CompletionRequest) string

	// Err, if non-nil, is returned by every Complete call.
	Err error

	// Requests records every Complete invocation.
	Requests []llm.CompletionRequest
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)

// Complete records the request and returns the scripted reply.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return "", p.Err
	}
	if p.ReplyFunc != nil {
		return p.ReplyFunc(req), nil
	}
	return p.Reply, nil
}

// Calls returns a copy of the recorded requests.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.Requests))
	copy(out, p.Requests)
	return out
}
