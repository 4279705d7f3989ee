// Package media carries the realtime audio path: the Pacer that streams WAV
// files to the peer in real time, and the Streamer that orchestrates
// capture, recognition, synthesis, and playback for the active call.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avelow/voxbridge/internal/state"
	"github.com/avelow/voxbridge/pkg/audio"
	"github.com/avelow/voxbridge/pkg/wire"
)

// Pacer streams canonical-format WAV files to a media channel one 20 ms
// frame per tick. Sleeping a fixed interval per frame would accumulate
// scheduler error and drift audibly over a long prompt, so the pacer keeps
// a reference deadline and sleeps only the remaining gap.
type Pacer struct {
	// now and sleep are the clock; tests inject fakes to run instantly.
	now   func() time.Time
	sleep func(d time.Duration)
}

// NewPacer creates a Pacer on the real clock.
func NewPacer() *Pacer {
	return &Pacer{now: time.Now, sleep: time.Sleep}
}

// newPacerWithClock is the test constructor.
func newPacerWithClock(now func() time.Time, sleep func(time.Duration)) *Pacer {
	return &Pacer{now: now, sleep: sleep}
}

// StreamWAV sends the file at path over ch as sequenced audioData frames.
// Each frame's number is drawn from nextSeq just before encoding, so
// playback and capture frames interleave on one shared counter without
// collisions. The final short frame is zero-padded to full length so the
// peer always sees uniform frames. The file must already be in canonical
// format; anything else fails up front with audio.ErrBadFormat before a
// single frame is sent.
func (p *Pacer) StreamWAV(ctx context.Context, ch state.Channel, path string, nextSeq func() uint64) error {
	r, err := audio.OpenWAV(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if !r.IsCanonical() {
		return fmt.Errorf("media: %q: rate=%d ch=%d: %w",
			path, r.SampleRate(), r.Channels(), audio.ErrBadFormat)
	}

	buf := make([]byte, audio.FrameBytes)
	next := p.now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("media: read %q: %w", path, err)
		}
		frame := buf
		if n < audio.FrameBytes {
			frame = make([]byte, audio.FrameBytes)
			copy(frame, buf[:n])
		}

		seq := nextSeq()
		msg, err := wire.EncodeAudioData(seq, frame)
		if err != nil {
			return fmt.Errorf("media: encode frame %d: %w", seq, err)
		}
		if err := ch.SendMessage(msg); err != nil {
			return fmt.Errorf("media: send frame %d: %w", seq, err)
		}

		next = next.Add(audio.FrameDuration)
		if gap := next.Sub(p.now()); gap > 0 {
			p.sleep(gap)
		}
	}
}
