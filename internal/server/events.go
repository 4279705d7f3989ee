package server

import (
	"net/http"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

// handleInboundCall is the telephony provider's inbound-call webhook
// (form-encoded for Twilio). It answers the call with instructions that
// point its media stream at our /media endpoint, and parks the answer
// handle for the websocket connection that follows.
func (s *Server) handleInboundCall(w http.ResponseWriter, r *http.Request) {
	if s.controller == nil {
		writeError(w, http.StatusNotImplemented, "no call controller configured")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	call := callctl.InboundCall{
		ID:   r.PostFormValue("CallSid"),
		From: r.PostFormValue("From"),
		To:   r.PostFormValue("To"),
	}
	if call.ID == "" {
		writeError(w, http.StatusBadRequest, "missing call identifier")
		return
	}
	if s.calls.Active() {
		writeError(w, http.StatusConflict, "a call is already active")
		return
	}

	mediaURL := "wss://" + s.publicHost + "/media"
	h, err := s.controller.Answer(r.Context(), call, mediaURL)
	if err != nil {
		s.log.Error("failed to answer inbound call", "call_id", call.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to answer call")
		return
	}
	s.setPending(h)

	s.log.Info("answered inbound call",
		"call_id", call.ID, "from", call.From, "media_url", mediaURL)

	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(h.Instructions))
}
