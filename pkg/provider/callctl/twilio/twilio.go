// Package twilio implements callctl.Controller against the Twilio Voice
// API: answers are expressed as <Connect><Stream> TwiML pointing the call's
// media at the bridge websocket, and hangups go through the REST API by
// completing the call resource.
package twilio

import (
	"context"
	"fmt"

	twiliogo "github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

// Compile-time assertion that Controller satisfies callctl.Controller.
var _ callctl.Controller = (*Controller)(nil)

// callAPI is the slice of the Twilio REST client the controller uses.
// Narrowed to an interface so tests can stub the wire.
type callAPI interface {
	UpdateCall(sid string, params *twilioapi.UpdateCallParams) (*twilioapi.ApiV2010Call, error)
}

// Controller drives Twilio Programmable Voice.
type Controller struct {
	api callAPI
}

// New creates a Controller authenticating with the given account SID and
// auth token.
func New(accountSID, authToken string) *Controller {
	client := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Controller{api: client.Api}
}

// Answer builds the TwiML that connects the call's media to mediaURL. No
// REST call happens here; Twilio acts on the document the webhook returns.
func (c *Controller) Answer(_ context.Context, call callctl.InboundCall, mediaURL string) (callctl.Handle, error) {
	if call.ID == "" {
		return callctl.Handle{}, fmt.Errorf("twilio: inbound call has no SID")
	}
	stream := twiml.VoiceStream{Url: mediaURL}
	connect := twiml.VoiceConnect{InnerElements: []twiml.Element{stream}}
	doc, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return callctl.Handle{}, fmt.Errorf("twilio: build answer twiml: %w", err)
	}
	return callctl.Handle{ID: call.ID, Instructions: doc}, nil
}

// HangUp completes the call via the REST API.
func (c *Controller) HangUp(_ context.Context, h callctl.Handle) error {
	if h.ID == "" {
		return callctl.ErrNoHandle
	}
	params := &twilioapi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := c.api.UpdateCall(h.ID, params); err != nil {
		return fmt.Errorf("twilio: hang up %s: %w", h.ID, err)
	}
	return nil
}
