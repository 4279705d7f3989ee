// Package wire implements the JSON envelope spoken on the media websocket:
// 20 ms PCM frames wrapped in audioData messages, plus the audioMetadata
// message that opens a stream.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Message kinds carried on the media socket.
const (
	KindAudioData     = "audioData"
	KindAudioMetadata = "audioMetadata"
	KindStopAudio     = "stopAudio"
)

// AudioPayload is the inner audioData object.
type AudioPayload struct {
	Data           string `json:"data"`
	SequenceNumber uint64 `json:"sequenceNumber,omitempty"`
	Silent         bool   `json:"silent,omitempty"`
}

// Envelope is the outer media message.
type Envelope struct {
	Kind      string        `json:"kind"`
	AudioData *AudioPayload `json:"audioData,omitempty"`
}

// EncodeAudioData wraps one PCM frame in an audioData envelope with the
// given sequence number, ready to send as a websocket text message.
func EncodeAudioData(seq uint64, pcm []byte) ([]byte, error) {
	env := Envelope{
		Kind: KindAudioData,
		AudioData: &AudioPayload{
			Data:           base64.StdEncoding.EncodeToString(pcm),
			SequenceNumber: seq,
		},
	}
	return json.Marshal(env)
}

// EncodeStopAudio builds the barge-in message that tells the remote side to
// flush any buffered playback.
func EncodeStopAudio() ([]byte, error) {
	return json.Marshal(Envelope{Kind: KindStopAudio})
}

// Inbound is a decoded media message from the remote peer. PCM is nil for
// non-audio messages (metadata, silent frames).
type Inbound struct {
	Kind string
	PCM  []byte
}

// inboundEnvelope tolerates the field spellings seen from real peers:
// audioData and audiodata both occur, and kind casing varies.
type inboundEnvelope struct {
	Kind       string          `json:"kind"`
	AudioData  json.RawMessage `json:"audioData"`
	AudioData2 json.RawMessage `json:"audiodata"`
}

// DecodeInbound parses one message from the media socket. Malformed JSON,
// unknown kinds, and audio messages without decodable payloads all return
// nil: the media loop drops them and keeps reading rather than tearing down
// the call over one bad message.
func DecodeInbound(raw []byte) *Inbound {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}

	switch strings.ToLower(env.Kind) {
	case strings.ToLower(KindAudioMetadata):
		return &Inbound{Kind: KindAudioMetadata}
	case strings.ToLower(KindAudioData):
		payload := env.AudioData
		if payload == nil {
			payload = env.AudioData2
		}
		if payload == nil {
			return nil
		}
		var ap AudioPayload
		if err := json.Unmarshal(payload, &ap); err != nil {
			return nil
		}
		if ap.Silent {
			return &Inbound{Kind: KindAudioData}
		}
		pcm, err := base64.StdEncoding.DecodeString(ap.Data)
		if err != nil || len(pcm) == 0 {
			return nil
		}
		return &Inbound{Kind: KindAudioData, PCM: pcm}
	default:
		return nil
	}
}
