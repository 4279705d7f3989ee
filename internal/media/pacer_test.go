package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/avelow/voxbridge/pkg/audio"
)

// recordingChannel captures every envelope sent to it.
type recordingChannel struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (c *recordingChannel) SendMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	d := make([]byte, len(data))
	copy(d, data)
	c.msgs = append(c.msgs, d)
	return nil
}

func (c *recordingChannel) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// fakeClock advances instantly; every sleep lands exactly on the deadline.
type fakeClock struct {
	t      time.Time
	slept  []time.Duration
	plenty time.Duration
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1000, 0)} }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

type frameEnvelope struct {
	Kind      string `json:"kind"`
	AudioData struct {
		Data           string `json:"data"`
		SequenceNumber uint64 `json:"sequenceNumber"`
	} `json:"audioData"`
}

func decodeFrame(t *testing.T, raw []byte) frameEnvelope {
	t.Helper()
	var env frameEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	return env
}

// seqCounter mimics the shared call counter: each call returns the next
// number after start.
func seqCounter(start uint64) func() uint64 {
	n := start
	return func() uint64 {
		n++
		return n
	}
}

func writeTestWAV(t *testing.T, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	pcm := make([]byte, samples*audio.BytesPerSample)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	if err := audio.WriteWAV(path, pcm, audio.SampleRate, audio.Channels); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStreamWAVSequencesAndPads(t *testing.T) {
	// 2.5 frames of audio: two full frames plus one padded.
	path := writeTestWAV(t, audio.FrameSamples*2+audio.FrameSamples/2)
	ch := &recordingChannel{}
	clock := newFakeClock()
	p := newPacerWithClock(clock.now, clock.sleep)

	if err := p.StreamWAV(context.Background(), ch, path, seqCounter(10)); err != nil {
		t.Fatalf("StreamWAV: %v", err)
	}

	msgs := ch.sent()
	if len(msgs) != 3 {
		t.Fatalf("sent %d frames, want 3", len(msgs))
	}
	for i, raw := range msgs {
		env := decodeFrame(t, raw)
		if env.Kind != "audioData" {
			t.Fatalf("frame %d kind = %q", i, env.Kind)
		}
		if want := uint64(11 + i); env.AudioData.SequenceNumber != want {
			t.Fatalf("frame %d seq = %d, want %d", i, env.AudioData.SequenceNumber, want)
		}
		pcm, err := base64.StdEncoding.DecodeString(env.AudioData.Data)
		if err != nil {
			t.Fatalf("frame %d data: %v", i, err)
		}
		if len(pcm) != audio.FrameBytes {
			t.Fatalf("frame %d is %d bytes, want %d", i, len(pcm), audio.FrameBytes)
		}
	}

	// The padded tail of the last frame must be zeros.
	last := decodeFrame(t, msgs[2])
	pcm, _ := base64.StdEncoding.DecodeString(last.AudioData.Data)
	for i := audio.FrameBytes / 2; i < audio.FrameBytes; i++ {
		if pcm[i] != 0 {
			t.Fatalf("padding byte %d = %d, want 0", i, pcm[i])
		}
	}
}

func TestStreamWAVPacesWithoutDrift(t *testing.T) {
	path := writeTestWAV(t, audio.FrameSamples*5)
	ch := &recordingChannel{}
	clock := newFakeClock()
	p := newPacerWithClock(clock.now, clock.sleep)

	start := clock.t
	if err := p.StreamWAV(context.Background(), ch, path, seqCounter(0)); err != nil {
		t.Fatal(err)
	}
	// Reference-time pacing: total elapsed equals frames * interval exactly,
	// not frames * (interval + per-frame overhead).
	if got, want := clock.t.Sub(start), 5*audio.FrameDuration; got != want {
		t.Fatalf("elapsed = %v, want %v", got, want)
	}
}

func TestStreamWAVRejectsWrongFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cd.wav")
	if err := audio.WriteWAV(path, make([]byte, 44100*4), 44100, 2); err != nil {
		t.Fatal(err)
	}
	ch := &recordingChannel{}
	p := NewPacer()
	if err := p.StreamWAV(context.Background(), ch, path, seqCounter(0)); !errors.Is(err, audio.ErrBadFormat) {
		t.Fatalf("got %v, want ErrBadFormat", err)
	}
	if len(ch.sent()) != 0 {
		t.Fatal("no frames may be sent for a rejected file")
	}
}

func TestStreamWAVStopsOnSendError(t *testing.T) {
	path := writeTestWAV(t, audio.FrameSamples*10)
	boom := errors.New("socket closed")
	ch := &recordingChannel{err: boom}
	clock := newFakeClock()
	p := newPacerWithClock(clock.now, clock.sleep)

	next := seqCounter(0)
	if err := p.StreamWAV(context.Background(), ch, path, next); !errors.Is(err, boom) {
		t.Fatalf("got %v, want send error", err)
	}
	if got := next(); got != 2 {
		t.Fatalf("counter at %d, want 2 (one frame numbered before the failed send)", got)
	}
}

// interleavingChannel draws one extra number from the shared counter on
// every send, standing in for a capture frame transmitted mid-playback.
type interleavingChannel struct {
	recordingChannel
	next func() uint64
}

func (c *interleavingChannel) SendMessage(data []byte) error {
	if err := c.recordingChannel.SendMessage(data); err != nil {
		return err
	}
	c.next()
	return nil
}

func TestStreamWAVSharesCounterWithCapture(t *testing.T) {
	path := writeTestWAV(t, audio.FrameSamples*4)
	next := seqCounter(0)
	ch := &interleavingChannel{next: next}
	clock := newFakeClock()
	p := newPacerWithClock(clock.now, clock.sleep)

	if err := p.StreamWAV(context.Background(), ch, path, next); err != nil {
		t.Fatal(err)
	}

	msgs := ch.sent()
	if len(msgs) != 4 {
		t.Fatalf("sent %d frames, want 4", len(msgs))
	}
	// Capture frames steal every other number, so playback gets 1,3,5,7:
	// strictly increasing with no reuse.
	for i, raw := range msgs {
		env := decodeFrame(t, raw)
		if want := uint64(1 + 2*i); env.AudioData.SequenceNumber != want {
			t.Fatalf("frame %d seq = %d, want %d", i, env.AudioData.SequenceNumber, want)
		}
	}
}

func TestStreamWAVHonorsContext(t *testing.T) {
	path := writeTestWAV(t, audio.FrameSamples*10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPacer()
	if err := p.StreamWAV(ctx, &recordingChannel{}, path, seqCounter(0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
