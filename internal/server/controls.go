package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/avelow/voxbridge/internal/state"
	"github.com/avelow/voxbridge/pkg/provider/callctl"
	"github.com/avelow/voxbridge/pkg/provider/tts"
	"github.com/avelow/voxbridge/pkg/wire"
)

type muteRequest struct {
	On bool `json:"on"`
}

type playRequest struct {
	File string `json:"file"`
}

type sayRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Rate  int    `json:"rate,omitempty"`
}

// handleMute flips the microphone gate on the active call.
func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	var req muteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !s.calls.Active() {
		writeError(w, http.StatusConflict, "no active call")
		return
	}
	s.calls.SetMuted(req.On)
	writeJSON(w, http.StatusOK, map[string]any{"muted": req.On})
}

// handlePlay streams a WAV file from disk into the active call.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.File == "" {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if _, err := os.Stat(req.File); err != nil {
		writeError(w, http.StatusBadRequest, "file not found")
		return
	}
	if !s.calls.Active() {
		writeError(w, http.StatusConflict, "no active call")
		return
	}

	if err := s.streamer.PlayAudioFile(r.Context(), req.File); err != nil {
		if errors.Is(err, state.ErrNoActiveCall) {
			writeError(w, http.StatusConflict, "no active call")
			return
		}
		s.log.Error("playback failed", "file", req.File, "err", err)
		writeError(w, http.StatusInternalServerError, "playback failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"played": true, "seq": s.calls.Seq()})
}

// handleSay synthesizes text and streams it into the active call. Unlike
// transcript-driven replies this path is synchronous: it reports the final
// sequence number once playback finishes.
func (s *Server) handleSay(w http.ResponseWriter, r *http.Request) {
	var req sayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty text")
		return
	}
	if !s.calls.Active() {
		writeError(w, http.StatusConflict, "no active call")
		return
	}
	if s.synth == nil || !s.synth.Available() {
		writeError(w, http.StatusNotImplemented, "no speech engine available")
		return
	}

	path, err := s.synth.Synthesize(r.Context(), req.Text, tts.Params{Voice: req.Voice, Rate: req.Rate})
	if err != nil {
		switch {
		case errors.Is(err, tts.ErrEmptyText):
			writeError(w, http.StatusBadRequest, "empty text")
		case errors.Is(err, tts.ErrUnavailable):
			writeError(w, http.StatusNotImplemented, "no speech engine available")
		default:
			s.log.Error("synthesis failed", "err", err)
			writeError(w, http.StatusInternalServerError, "synthesis failed")
		}
		return
	}

	if err := s.streamer.PlayAudioFile(r.Context(), path); err != nil {
		if errors.Is(err, state.ErrNoActiveCall) {
			writeError(w, http.StatusConflict, "no active call")
			return
		}
		s.log.Error("playback failed", "err", err)
		writeError(w, http.StatusInternalServerError, "playback failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"played": true, "seq": s.calls.Seq()})
}

// handleHangup terminates the active call at the provider and tears down
// streaming.
func (s *Server) handleHangup(w http.ResponseWriter, r *http.Request) {
	h, err := s.calls.Handle()
	if err != nil {
		writeError(w, http.StatusConflict, "no call handle")
		return
	}
	if s.controller != nil {
		if err := s.controller.HangUp(r.Context(), h); err != nil {
			if errors.Is(err, callctl.ErrNoHandle) {
				writeError(w, http.StatusConflict, "no call handle")
				return
			}
			s.log.Error("hangup failed", "call_id", h.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "hangup failed")
			return
		}
	}
	// Best effort: tell the channel peer to stop playback before teardown.
	if ch, err := s.calls.Channel(); err == nil {
		if msg, err := wire.EncodeStopAudio(); err == nil {
			if err := ch.SendMessage(msg); err != nil {
				s.log.Debug("stop-audio notify failed", "err", err)
			}
		}
	}
	s.streamer.StopStreaming()
	writeJSON(w, http.StatusOK, map[string]any{"hung_up": true})
}

// handleCallStatus reports a snapshot of the live call.
func (s *Server) handleCallStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"ws_active": s.calls.Active(),
		"muted":     s.calls.Muted(),
		"seq":       s.calls.Seq(),
	})
}

// handleVoices lists the installed voices across the synthesis chain.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		writeError(w, http.StatusNotImplemented, "no speech engine available")
		return
	}
	voices, err := s.synth.Voices(r.Context())
	if err != nil {
		if errors.Is(err, tts.ErrNotSupported) {
			writeError(w, http.StatusNotImplemented, "voice listing not supported")
			return
		}
		s.log.Error("voice listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "voice listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
