// Package mock provides a scriptable test double for callctl.Controller.
package mock

import (
	"context"
	"sync"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

// Controller is a mock implementation of callctl.Controller.
type Controller struct {
	mu sync.Mutex

	// AnswerErr and HangUpErr script failures.
	AnswerErr error
	HangUpErr error

	// Instructions is placed on the handle returned by Answer.
	Instructions string

	// Answered records the calls passed to Answer; HungUp the handles
	// passed to HangUp.
	Answered []callctl.InboundCall
	HungUp   []callctl.Handle
}

// Ensure Controller implements callctl.Controller at compile time.
var _ callctl.Controller = (*Controller)(nil)

// Answer records the call and returns a handle echoing its ID.
func (c *Controller) Answer(_ context.Context, call callctl.InboundCall, _ string) (callctl.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Answered = append(c.Answered, call)
	if c.AnswerErr != nil {
		return callctl.Handle{}, c.AnswerErr
	}
	instr := c.Instructions
	if instr == "" {
		instr = "<Response/>"
	}
	return callctl.Handle{ID: call.ID, Instructions: instr}, nil
}

// HangUp records the handle.
func (c *Controller) HangUp(_ context.Context, h callctl.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.ID == "" {
		return callctl.ErrNoHandle
	}
	c.HungUp = append(c.HungUp, h)
	return c.HangUpErr
}

// HangUps returns a copy of the recorded hangup handles.
func (c *Controller) HangUps() []callctl.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]callctl.Handle, len(c.HungUp))
	copy(out, c.HungUp)
	return out
}
