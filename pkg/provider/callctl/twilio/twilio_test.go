package twilio

import (
	"context"
	"errors"
	"strings"
	"testing"

	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

type fakeAPI struct {
	sid    string
	status string
	err    error
}

func (f *fakeAPI) UpdateCall(sid string, params *twilioapi.UpdateCallParams) (*twilioapi.ApiV2010Call, error) {
	f.sid = sid
	if params.Status != nil {
		f.status = *params.Status
	}
	if f.err != nil {
		return nil, f.err
	}
	return &twilioapi.ApiV2010Call{}, nil
}

func TestAnswerBuildsConnectStream(t *testing.T) {
	c := &Controller{api: &fakeAPI{}}
	h, err := c.Answer(context.Background(), callctl.InboundCall{ID: "CA123"}, "wss://bridge.example/media")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if h.ID != "CA123" {
		t.Fatalf("handle ID = %q", h.ID)
	}
	for _, want := range []string{"<Connect>", "<Stream", `url="wss://bridge.example/media"`} {
		if !strings.Contains(h.Instructions, want) {
			t.Fatalf("TwiML missing %q:\n%s", want, h.Instructions)
		}
	}
}

func TestAnswerRequiresSID(t *testing.T) {
	c := &Controller{api: &fakeAPI{}}
	if _, err := c.Answer(context.Background(), callctl.InboundCall{}, "wss://x"); err == nil {
		t.Fatal("expected error for missing call SID")
	}
}

func TestHangUpCompletesCall(t *testing.T) {
	api := &fakeAPI{}
	c := &Controller{api: api}
	if err := c.HangUp(context.Background(), callctl.Handle{ID: "CA9"}); err != nil {
		t.Fatalf("HangUp: %v", err)
	}
	if api.sid != "CA9" || api.status != "completed" {
		t.Fatalf("update call: sid=%q status=%q", api.sid, api.status)
	}
}

func TestHangUpWithoutHandle(t *testing.T) {
	c := &Controller{api: &fakeAPI{}}
	if err := c.HangUp(context.Background(), callctl.Handle{}); !errors.Is(err, callctl.ErrNoHandle) {
		t.Fatalf("got %v, want ErrNoHandle", err)
	}
}

func TestHangUpPropagatesAPIError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	c := &Controller{api: &fakeAPI{err: boom}}
	if err := c.HangUp(context.Background(), callctl.Handle{ID: "CA1"}); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped API error", err)
	}
}
