package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/avelow/voxbridge/internal/observe"
	"github.com/avelow/voxbridge/internal/state"
	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/provider/callctl"
	"github.com/avelow/voxbridge/pkg/provider/stt"
	"github.com/avelow/voxbridge/pkg/provider/tts"
	"github.com/avelow/voxbridge/pkg/wire"
)

// Queue capacities for the outbound leg. The transmit queue holds four
// seconds of capture audio; the synthesis queue holds utterances already
// rendered to disk, which are cheap, but an unbounded backlog of robot
// speech on a live call helps nobody.
const (
	txQueueSize  = 200
	ttsQueueSize = 50
)

// Responder turns a caller utterance into a spoken reply. The orchestration
// layer supplies one; nil disables automatic replies.
type Responder interface {
	Reply(ctx context.Context, utterance string) (string, error)
}

// Streamer orchestrates one call's media: capture frames go out gated by
// the mute flag, inbound frames feed recognition and the call recording,
// and synthesized speech is played through the Pacer with the microphone
// forced silent for the duration.
type Streamer struct {
	calls     *state.CallState
	pipeline  *stt.Pipeline
	synth     tts.Service
	pacer     *Pacer
	responder Responder
	metrics   *observe.Metrics
	log       *slog.Logger

	recordDir string
	greeting  string

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	txQueue  chan []byte
	ttsQueue chan string
	recorder *audio.WAVWriter
	wg       sync.WaitGroup

	// playMu serializes playbacks so two prompts cannot interleave frames.
	playMu sync.Mutex
}

// StreamerOption configures a Streamer.
type StreamerOption func(*Streamer)

// WithResponder enables automatic spoken replies to finalized transcripts.
func WithResponder(r Responder) StreamerOption {
	return func(s *Streamer) { s.responder = r }
}

// WithRecordingDir enables per-call WAV recordings under dir.
func WithRecordingDir(dir string) StreamerOption {
	return func(s *Streamer) { s.recordDir = dir }
}

// WithGreeting speaks text as soon as a call's media starts.
func WithGreeting(text string) StreamerOption {
	return func(s *Streamer) { s.greeting = text }
}

// WithStreamerLogger sets the logger.
func WithStreamerLogger(log *slog.Logger) StreamerOption {
	return func(s *Streamer) { s.log = log }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observe.Metrics) StreamerOption {
	return func(s *Streamer) { s.metrics = m }
}

// NewStreamer builds a Streamer around the shared call state, a recognition
// pipeline, and a synthesis engine.
func NewStreamer(calls *state.CallState, pipeline *stt.Pipeline, synth tts.Service, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		calls:    calls,
		pipeline: pipeline,
		synth:    synth,
		pacer:    NewPacer(),
		metrics:  observe.DefaultMetrics(),
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StartStreaming binds the new call's media channel and launches the
// transmit and synthesis workers. It fails if a call is already active.
func (s *Streamer) StartStreaming(ch state.Channel, h callctl.Handle) error {
	if err := s.calls.StartCall(ch, h); err != nil {
		return err
	}

	s.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.txQueue = make(chan []byte, txQueueSize)
	s.ttsQueue = make(chan string, ttsQueueSize)
	s.running = true

	if s.recordDir != "" {
		if rec, err := s.openRecorder(h); err != nil {
			s.log.Error("call recording disabled", "error", err)
		} else {
			s.recorder = rec
		}
	}

	s.pipeline.Start()
	s.wg.Add(2)
	go s.sendLoop(ctx, s.txQueue)
	go s.speakLoop(ctx, s.ttsQueue)
	s.mu.Unlock()

	s.metrics.ActiveCalls.Add(ctx, 1)
	s.log.Info("media streaming started", "call_id", h.ID)

	if s.greeting != "" {
		go func() {
			if err := s.Speak(ctx, s.greeting); err != nil {
				s.log.Error("greeting failed", "error", err)
			}
		}()
	}
	return nil
}

// StopStreaming tears the media path down: recognition is drained, the
// workers exit, the recording is finalized, and the call state clears.
// Idempotent, so the websocket close path and the hangup control can both
// call it.
func (s *Streamer) StopStreaming() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	recorder := s.recorder
	s.cancel = nil
	s.recorder = nil
	s.mu.Unlock()

	cancel()
	s.pipeline.Stop()
	s.wg.Wait()

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			s.log.Error("closing call recording failed", "error", err)
		} else {
			s.log.Info("call recording saved", "path", recorder.Path())
		}
	}

	s.metrics.ActiveCalls.Add(context.Background(), -1)
	s.calls.EndCall()
	s.log.Info("media streaming stopped")
}

// ProcessIncomingAudio handles one raw websocket message from the peer.
// Malformed messages are dropped; a phone call should survive a bad frame.
func (s *Streamer) ProcessIncomingAudio(raw []byte) {
	in := wire.DecodeInbound(raw)
	if in == nil {
		return
	}
	switch in.Kind {
	case wire.KindAudioMetadata:
		s.log.Debug("media metadata received")
	case wire.KindAudioData:
		if len(in.PCM) == 0 {
			return
		}
		s.metrics.FramesReceived.Add(context.Background(), 1)

		s.mu.Lock()
		rec := s.recorder
		s.mu.Unlock()
		if rec != nil {
			if err := rec.WriteFrames(in.PCM); err != nil {
				s.log.Error("recording write failed", "error", err)
			}
		}

		if err := s.pipeline.SubmitChunk(in.PCM); err != nil {
			s.log.Debug("recognition rejected chunk", "error", err)
		}
	}
}

// SubmitCaptureFrame queues one locally captured PCM frame for
// transmission. Frames are dropped while the call is muted or when no call
// is active. Never blocks; it runs on the capture device's callback.
func (s *Streamer) SubmitCaptureFrame(pcm []byte) {
	if s.calls.Muted() {
		return
	}
	s.mu.Lock()
	q, running := s.txQueue, s.running
	s.mu.Unlock()
	if !running {
		return
	}
	select {
	case q <- pcm:
	default:
		// Transmit backlog means the socket is stalled; shed the frame.
	}
}

// sendLoop transmits queued capture frames with live sequence numbers. The
// mute flag is re-checked at send time so frames queued just before a
// playback began do not leak into it.
func (s *Streamer) sendLoop(ctx context.Context, q chan []byte) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pcm := <-q:
			if s.calls.Muted() {
				continue
			}
			ch, err := s.calls.Channel()
			if err != nil {
				continue
			}
			msg, err := wire.EncodeAudioData(s.calls.NextSeq(), pcm)
			if err != nil {
				s.log.Error("encode capture frame failed", "error", err)
				continue
			}
			if err := ch.SendMessage(msg); err != nil {
				s.log.Warn("send capture frame failed", "error", err)
				continue
			}
			s.metrics.FramesSent.Add(ctx, 1)
		}
	}
}

// speakLoop plays synthesized utterances in arrival order.
func (s *Streamer) speakLoop(ctx context.Context, q chan string) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-q:
			if err := s.PlayAudioFile(ctx, path); err != nil && ctx.Err() == nil {
				s.log.Error("playback failed", "path", path, "error", err)
			}
		}
	}
}

// Speak synthesizes text and queues it for playback on the active call.
// Synthesis runs outside the mute gate; the gate brackets only the playback
// inside PlayAudioFile, so the caller stays audible while the engine works.
func (s *Streamer) Speak(ctx context.Context, text string) error {
	if !s.calls.Active() {
		return state.ErrNoActiveCall
	}
	start := time.Now()
	path, err := s.synth.Synthesize(ctx, text, tts.Params{})
	if err != nil {
		return err
	}
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("engine", s.synth.Name())))

	s.mu.Lock()
	q, running := s.ttsQueue, s.running
	s.mu.Unlock()
	if !running {
		return state.ErrNoActiveCall
	}
	select {
	case q <- path:
		return nil
	default:
		return fmt.Errorf("media: synthesis queue full")
	}
}

// PlayAudioFile streams the WAV at path to the caller in real time. The
// microphone is force-muted for the duration and the operator's previous
// mute choice is restored afterwards, playback error or not. Files not in
// canonical format are converted first.
func (s *Streamer) PlayAudioFile(ctx context.Context, path string) error {
	ch, err := s.calls.Channel()
	if err != nil {
		return err
	}
	canon, err := audio.EnsureCanonicalWAV(path)
	if err != nil {
		return err
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()

	prev := s.calls.SetMuted(true)
	defer s.calls.SetMuted(prev)

	start := time.Now()
	err = s.pacer.StreamWAV(ctx, ch, canon, s.calls.NextSeq)
	s.metrics.PlaybackDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return err
	}
	s.log.Info("played audio file", "path", canon, "took", time.Since(start))
	return nil
}

// HandleTranscript is the recognition pipeline's final-transcript callback.
// It logs the utterance and, when a responder is wired, speaks the reply.
// The reply runs on its own goroutine; the recognition worker must not wait
// on a language model.
func (s *Streamer) HandleTranscript(t stt.Transcript) {
	ctx := context.Background()
	s.metrics.Transcripts.Add(ctx, 1)
	s.log.Info("caller said", "text", t.Text, "duration", t.Duration)
	if s.responder == nil {
		return
	}
	go func() {
		reply, err := s.responder.Reply(ctx, t.Text)
		if err != nil {
			s.log.Error("responder failed", "error", err)
			return
		}
		if reply == "" {
			return
		}
		if err := s.Speak(ctx, reply); err != nil {
			s.log.Error("speaking reply failed", "error", err)
		}
	}()
}

func (s *Streamer) openRecorder(h callctl.Handle) (*audio.WAVWriter, error) {
	if err := os.MkdirAll(s.recordDir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create recording dir: %w", err)
	}
	name := fmt.Sprintf("call-%s-%s.wav", h.ID, time.Now().Format("20060102-150405"))
	return audio.NewWAVWriter(filepath.Join(s.recordDir, name), audio.SampleRate, audio.Channels)
}
