package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/wire"
)

func dialMedia(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/media" + query
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	return conn
}

func TestMediaChannelLifecycle(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Routes())
	defer ts.Close()

	conn := dialMedia(t, ts, "?call=CA77")
	waitFor(t, time.Second, f.calls.Active)

	h, err := f.calls.Handle()
	if err != nil || h.ID != "CA77" {
		t.Errorf("handle = %v err=%v, want CA77", h, err)
	}

	// Inbound audio flows into the pipeline without killing the socket.
	frame, err := wire.EncodeAudioData(1, make([]byte, audio.FrameBytes))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	cancel()

	conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, time.Second, func() bool { return !f.calls.Active() })
}

func TestMediaChannelUsesPendingHandle(t *testing.T) {
	f := newFixture(t)
	f.srv.setPending(callctlHandle("CA88"))
	ts := httptest.NewServer(f.srv.Routes())
	defer ts.Close()

	conn := dialMedia(t, ts, "")
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitFor(t, time.Second, f.calls.Active)
	h, err := f.calls.Handle()
	if err != nil || h.ID != "CA88" {
		t.Errorf("handle = %v err=%v, want CA88", h, err)
	}
	if _, ok := f.srv.takePending(); ok {
		t.Error("pending handle not consumed")
	}
}

func TestMediaChannelRejectsSecondCall(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Routes())
	defer ts.Close()

	first := dialMedia(t, ts, "?call=CA1")
	defer first.Close(websocket.StatusNormalClosure, "")
	waitFor(t, time.Second, f.calls.Active)

	second := dialMedia(t, ts, "?call=CA2")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := second.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Errorf("close status = %v (err %v), want policy violation", websocket.CloseStatus(err), err)
	}

	h, _ := f.calls.Handle()
	if h.ID != "CA1" {
		t.Errorf("active call = %q, want CA1", h.ID)
	}
}

func TestMediaChannelRejectsAnonymous(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Routes())
	defer ts.Close()

	conn := dialMedia(t, ts, "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Errorf("close status = %v (err %v), want policy violation", websocket.CloseStatus(err), err)
	}
	if f.calls.Active() {
		t.Error("anonymous connection started a call")
	}
}
