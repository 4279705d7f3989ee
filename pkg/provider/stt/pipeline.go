package stt

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// pipelineState tracks the lifecycle of a Pipeline.
type pipelineState int32

const (
	stateIdle pipelineState = iota
	stateRunning
	stateStopping
)

// Pipeline decouples the media loop from recognition. SubmitChunk never
// blocks: audio is buffered on a bounded queue and a worker goroutine feeds
// it to the Recognizer, invoking the final-transcript callback as utterances
// complete. When the queue backs up past the drop threshold, the newest
// chunks are discarded and counted; stale audio is worth less than a stalled
// socket reader.
type Pipeline struct {
	rec     Recognizer
	onFinal func(Transcript)
	onDrop  func()
	log     *slog.Logger

	queueSize     int
	dropThreshold int
	joinTimeout   time.Duration

	mu    sync.Mutex
	state pipelineState
	queue chan []byte
	done  chan struct{}

	dropped atomic.Uint64
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithQueueSize sets the chunk queue capacity.
func WithQueueSize(n int) PipelineOption {
	return func(p *Pipeline) { p.queueSize = n }
}

// WithDropThreshold sets the queue depth at which new chunks are dropped.
func WithDropThreshold(n int) PipelineOption {
	return func(p *Pipeline) { p.dropThreshold = n }
}

// WithJoinTimeout bounds how long Stop waits for the worker to drain.
func WithJoinTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.joinTimeout = d }
}

// WithLogger sets the pipeline's logger.
func WithLogger(log *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// WithDropHook registers fn to be called once per discarded chunk, e.g. to
// feed a metrics counter. fn runs on the submitting goroutine and must not
// block.
func WithDropHook(fn func()) PipelineOption {
	return func(p *Pipeline) { p.onDrop = fn }
}

// NewPipeline builds a pipeline around rec. onFinal is invoked from the
// worker goroutine for every finalized utterance; it must not block for
// long.
func NewPipeline(rec Recognizer, onFinal func(Transcript), opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rec:           rec,
		onFinal:       onFinal,
		log:           slog.Default(),
		queueSize:     DefaultQueueSize,
		dropThreshold: DefaultDropThreshold,
		joinTimeout:   DefaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dropThreshold > p.queueSize {
		p.dropThreshold = p.queueSize
	}
	return p
}

// Start launches the worker. Starting an already-running pipeline is a
// no-op, so a reconnecting media loop can call it unconditionally.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != stateIdle {
		p.log.Debug("stt pipeline already started, ignoring", "state", p.state)
		return
	}
	p.queue = make(chan []byte, p.queueSize)
	p.done = make(chan struct{})
	p.state = stateRunning
	go p.work(p.queue, p.done)
}

// Running reports whether the pipeline currently accepts audio.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateRunning
}

// SubmitChunk enqueues one PCM chunk without blocking. Chunks submitted
// while the queue is past its drop threshold are discarded and counted.
func (p *Pipeline) SubmitChunk(pcm []byte) error {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return ErrNotRunning
	}
	queue := p.queue
	p.mu.Unlock()

	if len(queue) >= p.dropThreshold {
		p.countDrop()
		return nil
	}
	select {
	case queue <- pcm:
	default:
		p.countDrop()
	}
	return nil
}

func (p *Pipeline) countDrop() {
	n := p.dropped.Add(1)
	if p.onDrop != nil {
		p.onDrop()
	}
	if n%100 == 1 {
		p.log.Warn("stt queue saturated, dropping audio", "dropped_total", n)
	}
}

// Dropped returns how many chunks have been discarded since creation.
func (p *Pipeline) Dropped() uint64 { return p.dropped.Load() }

// Stop signals the worker, waits up to the join timeout for it to flush and
// exit, and returns the pipeline to idle. Stopping an idle pipeline is a
// no-op. Stop is safe to call concurrently; only one caller performs the
// shutdown.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return
	}
	p.state = stateStopping
	queue, done := p.queue, p.done
	p.mu.Unlock()

	// nil chunk is the drain marker. If the queue is completely full the
	// worker is still making progress and will observe the closed state
	// via the timeout below.
	select {
	case queue <- nil:
	default:
	}

	select {
	case <-done:
	case <-time.After(p.joinTimeout):
		p.log.Warn("stt worker did not drain in time", "timeout", p.joinTimeout)
	}

	p.mu.Lock()
	p.state = stateIdle
	p.queue = nil
	p.done = nil
	p.mu.Unlock()
}

// Close stops the pipeline if running and releases the recognizer. The
// pipeline cannot be started again afterwards. The recognizer outlives
// individual Start/Stop cycles so one loaded model serves every call.
func (p *Pipeline) Close() error {
	p.Stop()
	return p.rec.Close()
}

// work is the recognition loop. It exits on the nil drain marker or when
// the pipeline leaves the running state, flushing the recognizer on the way
// out.
func (p *Pipeline) work(queue chan []byte, done chan struct{}) {
	defer close(done)

	for {
		var chunk []byte
		select {
		case chunk = <-queue:
		case <-time.After(200 * time.Millisecond):
			// Periodic wake-up so a Stop that lost the race to enqueue
			// its marker still terminates the worker. The queue identity
			// check keeps a timed-out worker from outliving a restart.
			p.mu.Lock()
			stale := p.queue != queue || p.state != stateRunning
			p.mu.Unlock()
			if stale {
				p.flush()
				return
			}
			continue
		}
		if chunk == nil {
			p.flush()
			return
		}
		finalized, err := p.rec.AcceptAudio(chunk)
		if err != nil {
			p.log.Error("recognizer rejected audio", "error", err)
			continue
		}
		if finalized {
			p.emit(p.rec.Result())
		}
	}
}

func (p *Pipeline) flush() {
	finalized, err := p.rec.Flush()
	if err != nil {
		p.log.Error("recognizer flush failed", "error", err)
		return
	}
	if finalized {
		p.emit(p.rec.Result())
	}
}

func (p *Pipeline) emit(t Transcript) {
	if t.Text == "" || p.onFinal == nil {
		return
	}
	p.onFinal(t)
}
