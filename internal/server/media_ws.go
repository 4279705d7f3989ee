package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

// maxMessageSize caps one inbound websocket message. A frame envelope is
// under 1 KiB; the limit leaves headroom for batched provider metadata.
const maxMessageSize = 1 << 20

// wsChannel adapts a websocket connection to the sender contract. Writes
// are serialized: the capture sender and the playback pacer share it.
type wsChannel struct {
	conn *websocket.Conn
	ctx  context.Context

	mu sync.Mutex
}

func (c *wsChannel) SendMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(c.ctx, websocket.MessageText, data)
}

// handleMedia accepts the provider's media websocket, binds it to the
// orchestrator for the lifetime of the connection, and pumps inbound
// messages into the audio pipeline. When the socket closes — hangup or
// network loss — streaming is torn down and the call state cleared.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("media websocket accept failed", "err", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	h, ok := s.takePending()
	if !ok {
		// Direct connections (tests, soft-phone clients) identify
		// themselves by query parameter instead of the webhook.
		h = callctl.Handle{ID: r.URL.Query().Get("call")}
	}
	if h.ID == "" {
		conn.Close(websocket.StatusPolicyViolation, "no call to attach to")
		return
	}

	ch := &wsChannel{conn: conn, ctx: r.Context()}
	if err := s.streamer.StartStreaming(ch, h); err != nil {
		s.log.Warn("rejecting media connection", "call_id", h.ID, "err", err)
		conn.Close(websocket.StatusPolicyViolation, "call already active")
		return
	}
	defer s.streamer.StopStreaming()

	s.log.Info("media channel attached", "call_id", h.ID)

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway,
				errors.Is(err, context.Canceled):
				s.log.Info("media channel closed", "call_id", h.ID)
			default:
				s.log.Warn("media channel read error", "call_id", h.ID, "err", err)
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		s.streamer.ProcessIncomingAudio(data)
	}
}
