package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// CaptureSource yields raw 16-bit PCM from a local input device. Frames are
// delivered to the callback in canonical-format chunks; the callback runs on
// the source's reader goroutine and must not block for long.
type CaptureSource interface {
	// Start begins capturing and invoking onFrame until the context is
	// cancelled or Stop is called.
	Start(ctx context.Context, onFrame func(pcm []byte)) error
	// Stop terminates capture and releases the device.
	Stop() error
}

// ALSASource captures microphone audio by running arecord as a child
// process. It exists for local agent mode, where the operator's microphone
// stands in for the telephony leg.
type ALSASource struct {
	// Device is the ALSA device name; empty means the default device.
	Device string
	// Binary overrides the arecord executable, for tests.
	Binary string

	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

// Start spawns arecord emitting canonical-format raw PCM on stdout and
// forwards complete 20 ms frames to onFrame.
func (s *ALSASource) Start(ctx context.Context, onFrame func(pcm []byte)) error {
	if s.cmd != nil {
		return fmt.Errorf("audio: capture already running")
	}
	bin := s.Binary
	if bin == "" {
		bin = "arecord"
	}
	args := []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", "16000", "-c", "1"}
	if s.Device != "" {
		args = append(args, "-D", s.Device)
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("audio: capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("audio: start %s: %w", bin, err)
	}
	s.cmd = cmd
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.readLoop(stdout, onFrame)
	return nil
}

func (s *ALSASource) readLoop(r io.Reader, onFrame func(pcm []byte)) {
	defer close(s.done)
	br := bufio.NewReaderSize(r, FrameBytes*4)
	buf := make([]byte, FrameBytes)
	for {
		if _, err := io.ReadFull(br, buf); err != nil {
			return
		}
		frame := make([]byte, FrameBytes)
		copy(frame, buf)
		onFrame(frame)
	}
}

// Stop kills the capture process and waits for the reader goroutine.
func (s *ALSASource) Stop() error {
	if s.cmd == nil {
		return nil
	}
	s.cancel()
	<-s.done
	err := s.cmd.Wait()
	s.cmd = nil
	s.cancel = nil
	// arecord exits non-zero when killed; that is the normal stop path.
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		err = nil
	}
	return err
}
