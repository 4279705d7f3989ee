// Package mock provides a test double for the stt.Recognizer interface.
//
// Script the recognizer with FinalizeEvery to emit a transcript after a
// fixed number of chunks, or set Err fields to simulate engine failures.
// All recorded fields are safe to inspect after the pipeline has stopped.
package mock

import (
	"fmt"
	"sync"

	"github.com/avelow/voxbridge/pkg/provider/stt"
)

// Recognizer is a scriptable implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// FinalizeEvery emits a transcript after every N accepted chunks.
	// Zero means AcceptAudio never finalizes on its own.
	FinalizeEvery int

	// Transcript is the text emitted on finalization. Each emission is
	// suffixed with a running count so tests can tell results apart.
	Transcript string

	// AcceptErr, if non-nil, is returned by every AcceptAudio call.
	AcceptErr error

	// FlushErr, if non-nil, is returned by Flush.
	FlushErr error

	// Chunks records every chunk passed to AcceptAudio.
	Chunks [][]byte

	// Flushed counts Flush calls; Closed counts Close calls.
	Flushed int
	Closed  int

	accepted int
	results  int
	last     stt.Transcript
}

// Ensure Recognizer implements stt.Recognizer at compile time.
var _ stt.Recognizer = (*Recognizer)(nil)

// AcceptAudio records the chunk and finalizes per FinalizeEvery.
func (r *Recognizer) AcceptAudio(pcm []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AcceptErr != nil {
		return false, r.AcceptErr
	}
	c := make([]byte, len(pcm))
	copy(c, pcm)
	r.Chunks = append(r.Chunks, c)
	r.accepted++
	if r.FinalizeEvery > 0 && r.accepted%r.FinalizeEvery == 0 {
		r.finalizeLocked()
		return true, nil
	}
	return false, nil
}

// Result returns the most recent scripted transcript.
func (r *Recognizer) Result() stt.Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Flush finalizes buffered chunks if any arrived since the last result.
func (r *Recognizer) Flush() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Flushed++
	if r.FlushErr != nil {
		return false, r.FlushErr
	}
	if r.FinalizeEvery > 0 && r.accepted%r.FinalizeEvery != 0 {
		r.finalizeLocked()
		return true, nil
	}
	return false, nil
}

// Close records the call.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed++
	return nil
}

// Accepted returns how many chunks AcceptAudio has recorded.
func (r *Recognizer) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

func (r *Recognizer) finalizeLocked() {
	r.results++
	text := r.Transcript
	if text == "" {
		text = "transcript"
	}
	r.last = stt.Transcript{Text: fmt.Sprintf("%s %d", text, r.results), Confidence: 1}
}
