// Package callctl defines the call-control contract: answering an inbound
// call by pointing its media at our websocket, and hanging it up. The media
// itself flows through the bridge, not through this package.
package callctl

import (
	"context"
	"errors"
)

// ErrNoHandle is returned by HangUp when no call handle is held.
var ErrNoHandle = errors.New("callctl: no call handle")

// Handle identifies an answered call at the telephony provider.
type Handle struct {
	// ID is the provider's call identifier (Twilio CallSid).
	ID string

	// Instructions is the provider-format answer document the webhook
	// handler returns to accept the call (TwiML for Twilio).
	Instructions string
}

// InboundCall describes a ringing call as reported by the provider webhook.
type InboundCall struct {
	// ID is the provider's call identifier.
	ID string

	// From and To are the E.164 numbers on the call.
	From string
	To   string
}

// Controller is the abstraction over a telephony provider's call API.
// Implementations must be safe for concurrent use.
type Controller interface {
	// Answer accepts the ringing call, directing its media stream at
	// mediaURL (a wss:// endpoint speaking the bridge's frame protocol).
	// The returned handle carries the response document for the webhook.
	Answer(ctx context.Context, call InboundCall, mediaURL string) (Handle, error)

	// HangUp terminates the identified call at the provider.
	HangUp(ctx context.Context, h Handle) error
}
